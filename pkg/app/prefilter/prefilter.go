package prefilter

import (
	"sort"
	"strings"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/app/textnorm"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

// Span is a half-open byte range of the original text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

type Match struct {
	Entry pattern.Entry
	Span  Span
}

// Scan returns every occurrence of every snapshot entry in text, ordered by
// position. It does no I/O and never mutates the snapshot.
func Scan(snap *dictionary.Snapshot, text string) []Match {
	if snap == nil || text == "" {
		return nil
	}
	lowered := textnorm.Lower(text)
	compact := textnorm.Compact(lowered)
	joined := textnorm.Join(compact)

	var matches []Match
	for _, m := range snap.Matchers {
		switch {
		case m.Regex != nil:
			for _, loc := range m.Regex.FindAllStringIndex(lowered.Text, -1) {
				if loc[0] == loc[1] {
					continue
				}
				s, e := lowered.Original(loc[0], loc[1])
				matches = append(matches, Match{Entry: m.Entry, Span: Span{Start: s, End: e}})
			}
		case m.Literal != "":
			seen := make(map[Span]struct{})
			for _, at := range findWords(compact, m.Literal) {
				s, e := compact.Original(at, at+len(m.Literal))
				span := Span{Start: s, End: e}
				seen[span] = struct{}{}
				matches = append(matches, Match{Entry: m.Entry, Span: span})
			}
			// words split by separators only line up once the gaps are gone
			for _, at := range findWords(joined, m.Joined) {
				s, e := joined.Original(at, at+len(m.Joined))
				span := Span{Start: s, End: e}
				if _, dup := seen[span]; dup {
					continue
				}
				seen[span] = struct{}{}
				matches = append(matches, Match{Entry: m.Entry, Span: span})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Span.Start != matches[j].Span.Start {
			return matches[i].Span.Start < matches[j].Span.Start
		}
		return matches[i].Span.End < matches[j].Span.End
	})
	return matches
}

// findWords returns the offsets of needle in the view where it starts and
// ends on a word boundary.
func findWords(v textnorm.View, needle string) []int {
	if needle == "" {
		return nil
	}
	haystack := v.Text
	var out []int
	for from := 0; from <= len(haystack)-len(needle); {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			break
		}
		at := from + i
		end := at + len(needle)
		if v.WordEdge(at) && v.WordEdge(end) {
			out = append(out, at)
		}
		from = at + 1
	}
	return out
}

// Distinct collapses matches to one per pattern id, keeping first-seen order.
func Distinct(matches []Match) []pattern.Entry {
	seen := make(map[string]struct{}, len(matches))
	out := make([]pattern.Entry, 0, len(matches))
	for _, m := range matches {
		id := m.Entry.ID.String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, m.Entry)
	}
	return out
}
