// Package analysis turns raw text into the normalized terms used as index keys.
// The pipeline is: split on non-alphanumeric boundaries, lowercase, drop
// stopwords and tokens shorter than the configured minimum.
package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a normalized term together with its position in the raw token
// stream. Positions are counted before stopword removal, so they map 1:1 onto
// the raw tokenization of the original text regardless of the stopword list.
type Token struct {
	Term     string
	Position uint32
}

// Span is the byte range of one raw token within the original text. Snippet
// extraction uses spans to map stored positions back to text.
type Span struct {
	Start int
	End   int
}

// Analyzer normalizes text into index terms. The zero value is not usable;
// construct with New.
type Analyzer struct {
	stopwords      map[string]struct{}
	minTokenLength int
}

// New creates an Analyzer with the given stopword list and minimum token
// length. Stopwords are compared case-insensitively. A minTokenLength below 1
// is treated as 1.
func New(stopwords []string, minTokenLength int) *Analyzer {
	if minTokenLength < 1 {
		minTokenLength = 1
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Analyzer{stopwords: set, minTokenLength: minTokenLength}
}

// Analyze returns the normalized tokens of text in order. It never fails;
// empty or non-text input yields an empty slice.
func (a *Analyzer) Analyze(text string) []Token {
	tokens := make([]Token, 0, len(text)/8)
	pos := uint32(0)
	forEachRawToken(text, func(start, end int) {
		term := strings.ToLower(text[start:end])
		p := pos
		pos++
		if utf8.RuneCountInString(term) < a.minTokenLength {
			return
		}
		if _, stop := a.stopwords[term]; stop {
			return
		}
		tokens = append(tokens, Token{Term: term, Position: p})
	})
	return tokens
}

// Normalize returns the distinct normalized terms of text, preserving first
// occurrence order. Used to run query strings through the same pipeline as
// indexed documents.
func (a *Analyzer) Normalize(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range a.Analyze(text) {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// Spans returns the byte offsets of every raw token in text, in order. The
// i-th span corresponds to raw-stream position i.
func Spans(text string) []Span {
	spans := make([]Span, 0, len(text)/8)
	forEachRawToken(text, func(start, end int) {
		spans = append(spans, Span{Start: start, End: end})
	})
	return spans
}

// forEachRawToken calls fn with the byte range of each maximal alphanumeric
// run in text.
func forEachRawToken(text string, fn func(start, end int)) {
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fn(start, i)
			start = -1
		}
	}
	if start >= 0 {
		fn(start, len(text))
	}
}
