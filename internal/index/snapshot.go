package index

import (
	"sync"

	"github.com/hyperjump/kensaku/internal/segment"
)

// Snapshot is an immutable view of the segment set at acquisition time.
// Queries against a snapshot are unaffected by concurrent commits, merges,
// and rebuilds. Each snapshot holds a reference on its segments; Close
// releases them, at which point retired segments may be reclaimed.
type Snapshot struct {
	segs []*segment.Segment
	once sync.Once
}

// Segments returns the segments in commit order.
func (sn *Snapshot) Segments() []*segment.Segment {
	return sn.segs
}

// Postings returns the postings for term across all segments, concatenated in
// segment order. Document IDs are globally unique so no renumbering happens.
func (sn *Snapshot) Postings(term string) []segment.Posting {
	var out []segment.Posting
	for _, s := range sn.segs {
		out = append(out, s.Postings(term)...)
	}
	return out
}

// DocFreq returns the number of documents containing term.
func (sn *Snapshot) DocFreq(term string) int {
	n := 0
	for _, s := range sn.segs {
		n += s.DocFreq(term)
	}
	return n
}

// Document returns the metadata for docID, if present in this snapshot.
func (sn *Snapshot) Document(docID uint32) (segment.DocInfo, bool) {
	for _, s := range sn.segs {
		if info, ok := s.Doc(docID); ok {
			return info, true
		}
	}
	return segment.DocInfo{}, false
}

// DocCount returns the number of documents visible in this snapshot.
func (sn *Snapshot) DocCount() int {
	n := 0
	for _, s := range sn.segs {
		n += s.DocCount()
	}
	return n
}

// TermCount returns the number of distinct terms across the snapshot.
func (sn *Snapshot) TermCount() int {
	if len(sn.segs) == 1 {
		return len(sn.segs[0].Terms())
	}
	seen := make(map[string]struct{})
	for _, s := range sn.segs {
		for _, t := range s.Terms() {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}

// AvgDocLength returns the mean document length in tokens, or 0 for an empty
// snapshot.
func (sn *Snapshot) AvgDocLength() float64 {
	docs := 0
	tokens := uint64(0)
	for _, s := range sn.segs {
		docs += s.DocCount()
		tokens += s.TotalTokens()
	}
	if docs == 0 {
		return 0
	}
	return float64(tokens) / float64(docs)
}

// Close releases the snapshot's references. Safe to call more than once.
func (sn *Snapshot) Close() {
	sn.once.Do(func() {
		for _, s := range sn.segs {
			s.DecRef()
		}
	})
}
