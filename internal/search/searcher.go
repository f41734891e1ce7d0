// Package search evaluates queries against index snapshots: OR semantics over
// the query terms, pluggable relevance scoring, and highlighted snippets
// extracted from the stored document text.
package search

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/analysis"
	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/storage"
)

// TextSource provides the stored text of a document for snippet extraction.
// *storage.SQLiteStore and *storage.CachedStore both satisfy it.
type TextSource interface {
	Text(ctx context.Context, docID uint32) (string, error)
}

// Hit is one ranked search result.
type Hit struct {
	DocID   uint32  `json:"doc_id"`
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

// Searcher evaluates queries. It is stateless across queries and safe for
// concurrent use.
type Searcher struct {
	analyzer *analysis.Analyzer
	scorer   Scorer
	texts    TextSource
	window   int
	logger   *zap.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithLogger sets a logger for per-query diagnostics.
func WithLogger(l *zap.Logger) SearcherOption {
	return func(s *Searcher) { s.logger = l }
}

// NewSearcher creates a Searcher. window is the snippet size in raw tokens.
func NewSearcher(analyzer *analysis.Analyzer, scorer Scorer, texts TextSource, window int, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		analyzer: analyzer,
		scorer:   scorer,
		texts:    texts,
		window:   window,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs query against the snapshot and returns up to limit hits ranked
// by score descending, ties broken by DocID ascending. A document matches if
// it contains at least one query term. A query that normalizes to nothing
// (empty, all stopwords) returns no hits. limit <= 0 means no limit.
func (s *Searcher) Search(ctx context.Context, sn *index.Snapshot, query string, limit int) ([]Hit, error) {
	terms := s.analyzer.Normalize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	docCount := sn.DocCount()
	avgLen := sn.AvgDocLength()
	scores := make(map[uint32]float64)
	// Matched raw positions per document feed snippet highlighting.
	positions := make(map[uint32][]uint32)

	for _, term := range terms {
		postings := sn.Postings(term)
		df := len(postings)
		for _, p := range postings {
			info, ok := sn.Document(p.DocID)
			if !ok {
				continue
			}
			scores[p.DocID] += s.scorer.Score(p.Frequency, info.Length, df, docCount, avgLen)
			positions[p.DocID] = append(positions[p.DocID], p.Positions...)
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(scores))
	for docID, score := range scores {
		info, ok := sn.Document(docID)
		if !ok {
			continue
		}
		hits = append(hits, Hit{DocID: docID, Path: info.Path, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	// Snippets only for the hits that made the cut.
	for i := range hits {
		text, err := s.texts.Text(ctx, hits[i].DocID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		hits[i].Snippet = Snippet(text, positions[hits[i].DocID], s.window)
	}
	s.logger.Debug("query evaluated",
		zap.Strings("terms", terms),
		zap.Int("matched", len(scores)),
		zap.Int("returned", len(hits)),
	)
	return hits, nil
}
