package segment

import (
	"sort"

	"github.com/hyperjump/kensaku/internal/analysis"
)

// Builder accumulates analyzed documents into the term dictionary and posting
// lists of one new segment. It is not safe for concurrent use; the index
// serializes commits.
type Builder struct {
	analyzer *analysis.Analyzer
	terms    map[string]map[uint32]*Posting
	docs     []DocInfo
}

// NewBuilder creates a Builder that analyzes documents with a.
func NewBuilder(a *analysis.Analyzer) *Builder {
	return &Builder{
		analyzer: a,
		terms:    make(map[string]map[uint32]*Posting),
	}
}

// Add analyzes text and records its postings under docID. Document length is
// the raw token count, independent of stopword removal. Returns the recorded
// metadata.
func (b *Builder) Add(docID uint32, path, text string) DocInfo {
	info := DocInfo{
		DocID:  docID,
		Path:   path,
		Length: uint32(len(analysis.Spans(text))),
	}
	for _, tok := range b.analyzer.Analyze(text) {
		byDoc, ok := b.terms[tok.Term]
		if !ok {
			byDoc = make(map[uint32]*Posting)
			b.terms[tok.Term] = byDoc
		}
		p, ok := byDoc[docID]
		if !ok {
			p = &Posting{DocID: docID}
			byDoc[docID] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, tok.Position)
	}
	b.docs = append(b.docs, info)
	return info
}

// DocCount returns the number of documents added so far.
func (b *Builder) DocCount() int { return len(b.docs) }

// Entries returns the accumulated term dictionary, terms sorted
// lexicographically and each posting list sorted by DocID.
func (b *Builder) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(b.terms))
	for term, byDoc := range b.terms {
		postings := make([]Posting, 0, len(byDoc))
		for _, p := range byDoc {
			postings = append(postings, *p)
		}
		sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
	return entries
}

// Docs returns the metadata of the added documents sorted by DocID.
func (b *Builder) Docs() []DocInfo {
	docs := append([]DocInfo(nil), b.docs...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })
	return docs
}
