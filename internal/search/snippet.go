package search

import (
	"html"
	"sort"
	"strings"

	"github.com/hyperjump/kensaku/internal/analysis"
)

// Snippet builds a highlighted excerpt of text around the densest cluster of
// matched raw-token positions. The excerpt covers at most window raw tokens;
// matched tokens are wrapped in <mark> tags and all other text is
// HTML-escaped. Ellipses mark truncation at either end. Positions outside the
// text's token range are ignored; with no usable positions the result is
// empty.
func Snippet(text string, positions []uint32, window int) string {
	if window < 1 {
		window = 1
	}
	spans := analysis.Spans(text)
	if len(spans) == 0 {
		return ""
	}

	matched := make(map[uint32]struct{}, len(positions))
	var ps []uint32
	for _, p := range positions {
		if int(p) >= len(spans) {
			continue
		}
		if _, ok := matched[p]; ok {
			continue
		}
		matched[p] = struct{}{}
		ps = append(ps, p)
	}
	if len(ps) == 0 {
		return ""
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })

	// Pick the start position whose window of raw tokens covers the most
	// matches. Two pointers over the sorted positions.
	best, bestCount := 0, 0
	for i, j := 0, 0; i < len(ps); i++ {
		if j < i {
			j = i
		}
		for j < len(ps) && ps[j] < ps[i]+uint32(window) {
			j++
		}
		if j-i > bestCount {
			best, bestCount = i, j-i
		}
	}

	lo := int(ps[best])
	hi := lo + window
	if hi > len(spans) {
		hi = len(spans)
	}

	var b strings.Builder
	if lo > 0 {
		b.WriteString("...")
	}
	cursor := spans[lo].Start
	for t := lo; t < hi; t++ {
		sp := spans[t]
		b.WriteString(html.EscapeString(text[cursor:sp.Start]))
		token := html.EscapeString(text[sp.Start:sp.End])
		if _, ok := matched[uint32(t)]; ok {
			b.WriteString("<mark>")
			b.WriteString(token)
			b.WriteString("</mark>")
		} else {
			b.WriteString(token)
		}
		cursor = sp.End
	}
	if hi < len(spans) {
		b.WriteString("...")
	}
	return b.String()
}
