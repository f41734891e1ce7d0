package segment

import "sort"

// Merge performs a k-way walk over the inputs' sorted term dictionaries and
// returns the term entries and document metadata of one consolidated segment.
// For each distinct term, posting lists are concatenated in segment order with
// DocID, Frequency, and Positions preserved unchanged; document IDs are
// already unique across segments, so no renumbering happens. The resulting
// document set is the union of the inputs'.
func Merge(segs []*Segment) ([]TermEntry, []DocInfo) {
	cursors := make([]int, len(segs))
	var entries []TermEntry
	for {
		// Smallest term not yet consumed across all inputs.
		next := ""
		found := false
		for i, seg := range segs {
			terms := seg.Terms()
			if cursors[i] >= len(terms) {
				continue
			}
			if !found || terms[cursors[i]] < next {
				next = terms[cursors[i]]
				found = true
			}
		}
		if !found {
			break
		}
		var postings []Posting
		for i, seg := range segs {
			terms := seg.Terms()
			if cursors[i] < len(terms) && terms[cursors[i]] == next {
				postings = append(postings, seg.Postings(next)...)
				cursors[i]++
			}
		}
		entries = append(entries, TermEntry{Term: next, Postings: postings})
	}

	var docs []DocInfo
	for _, seg := range segs {
		docs = append(docs, seg.Docs()...)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })
	return entries, docs
}
