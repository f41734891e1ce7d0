package search

import (
	"fmt"
	"math"
)

// Scorer computes one term's contribution to a document's relevance score.
// Contributions across query terms are summed.
type Scorer interface {
	Score(tf, docLen uint32, df, docCount int, avgDocLen float64) float64
}

// NewScorer returns the scorer registered under name ("tfidf" or "bm25").
func NewScorer(name string) (Scorer, error) {
	switch name {
	case "tfidf":
		return TFIDF{}, nil
	case "bm25":
		return BM25{K1: 1.2, B: 0.75}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// TFIDF scores tf * log(1 + N/(1+df)). The +1 inside the log keeps rare and
// common terms positive even when df approaches N.
type TFIDF struct{}

func (TFIDF) Score(tf, _ uint32, df, docCount int, _ float64) float64 {
	if tf == 0 || docCount == 0 {
		return 0
	}
	idf := math.Log(1 + float64(docCount)/float64(1+df))
	return float64(tf) * idf
}

// BM25 scores with Okapi BM25 using the stored raw-token document lengths for
// normalization.
type BM25 struct {
	K1 float64
	B  float64
}

func (s BM25) Score(tf, docLen uint32, df, docCount int, avgDocLen float64) float64 {
	if tf == 0 || docCount == 0 {
		return 0
	}
	idf := math.Log(1 + (float64(docCount)-float64(df)+0.5)/(float64(df)+0.5))
	norm := 1.0
	if avgDocLen > 0 {
		norm = 1 - s.B + s.B*float64(docLen)/avgDocLen
	}
	f := float64(tf)
	return idf * (f * (s.K1 + 1)) / (f + s.K1*norm)
}
