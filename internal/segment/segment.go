// Package segment implements the immutable indexed unit of the engine: a
// sorted term dictionary with positional postings plus the metadata of the
// documents it covers. A segment is never mutated after creation; it is only
// superseded (by a merge or rebuild) and released once no snapshot refers to it.
package segment

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// Posting records one term's occurrences within one document. Positions are
// raw-token offsets, ascending, one entry per occurrence; Frequency always
// equals len(Positions).
type Posting struct {
	DocID     uint32   `json:"d"`
	Frequency uint32   `json:"f"`
	Positions []uint32 `json:"p"`
}

// TermEntry pairs a term with its posting list, ordered by DocID ascending.
type TermEntry struct {
	Term     string    `json:"t"`
	Postings []Posting `json:"p"`
}

// DocInfo is the per-document metadata stored in a segment. Length is the raw
// token count of the document, used for score normalization.
type DocInfo struct {
	DocID  uint32 `json:"doc_id"`
	Path   string `json:"path"`
	Length uint32 `json:"length"`
}

// Segment is an immutable indexed unit. Lifetime is reference-counted: the
// live set holds one reference, every snapshot holds one more. Retire drops
// the live reference and installs a release hook that runs when the count
// reaches zero.
type Segment struct {
	id          string
	file        string
	terms       []string
	postings    map[string][]Posting
	docs        map[uint32]DocInfo
	docIDs      *roaring.Bitmap
	totalTokens uint64

	mu      sync.Mutex
	refs    int
	release func(*Segment)
}

// New creates a segment from sorted term entries and document metadata.
// file is the on-disk file name the segment was persisted as (may be empty
// for purely in-memory segments, e.g. in tests). The caller receives the
// initial reference.
func New(id, file string, entries []TermEntry, docs []DocInfo) *Segment {
	s := &Segment{
		id:       id,
		file:     file,
		terms:    make([]string, 0, len(entries)),
		postings: make(map[string][]Posting, len(entries)),
		docs:     make(map[uint32]DocInfo, len(docs)),
		docIDs:   roaring.New(),
		refs:     1,
	}
	for _, e := range entries {
		s.terms = append(s.terms, e.Term)
		s.postings[e.Term] = e.Postings
	}
	for _, d := range docs {
		s.docs[d.DocID] = d
		s.docIDs.Add(d.DocID)
		s.totalTokens += uint64(d.Length)
	}
	return s
}

// ID returns the segment identifier.
func (s *Segment) ID() string { return s.id }

// File returns the on-disk file name the segment was persisted as.
func (s *Segment) File() string { return s.file }

// Terms returns the sorted term dictionary.
func (s *Segment) Terms() []string { return s.terms }

// Postings returns the posting list for term, or nil if the segment does not
// contain it.
func (s *Segment) Postings(term string) []Posting { return s.postings[term] }

// DocFreq returns the number of documents in this segment containing term.
func (s *Segment) DocFreq(term string) int { return len(s.postings[term]) }

// Doc returns the metadata for docID and whether the segment owns it.
func (s *Segment) Doc(docID uint32) (DocInfo, bool) {
	if !s.docIDs.Contains(docID) {
		return DocInfo{}, false
	}
	d, ok := s.docs[docID]
	return d, ok
}

// DocIDs returns the set of document IDs owned by this segment.
func (s *Segment) DocIDs() *roaring.Bitmap { return s.docIDs }

// DocCount returns the number of documents in the segment.
func (s *Segment) DocCount() int { return len(s.docs) }

// TotalTokens returns the sum of document lengths, used to compute the
// corpus average document length.
func (s *Segment) TotalTokens() uint64 { return s.totalTokens }

// Docs returns the document metadata sorted by DocID.
func (s *Segment) Docs() []DocInfo {
	out := make([]DocInfo, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

// AddRef takes an additional reference to the segment.
func (s *Segment) AddRef() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// DecRef drops one reference. When the count reaches zero and the segment has
// been retired, its release hook runs.
func (s *Segment) DecRef() {
	s.mu.Lock()
	s.refs--
	release := s.release
	last := s.refs == 0
	s.mu.Unlock()
	if last && release != nil {
		release(s)
	}
}

// Retire marks the segment as superseded: it drops the live-set reference and
// arranges for release to run once the last snapshot lets go.
func (s *Segment) Retire(release func(*Segment)) {
	s.mu.Lock()
	s.release = release
	s.mu.Unlock()
	s.DecRef()
}
