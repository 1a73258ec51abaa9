// Package textnorm builds the normalized views the pre-filter matches on.
// Every byte of a view maps back to a byte range of the original text.
package textnorm

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// View is a normalized rendering of a text. start[i] and end[i] give the
// original byte range that produced byte i of Text.
type View struct {
	Text  string
	start []int
	end   []int
	// edges lists word boundaries for views without spaces between words.
	edges []int
}

// Original maps the half-open range [s, e) of the view back to the
// original text.
func (v View) Original(s, e int) (int, int) {
	if s < 0 || e > len(v.Text) || s >= e {
		return 0, 0
	}
	return v.start[s], v.end[e-1]
}

// WordEdge reports whether offset i falls on a word boundary.
func (v View) WordEdge(i int) bool {
	if i <= 0 || i >= len(v.Text) {
		return i == 0 || i == len(v.Text)
	}
	if v.edges != nil {
		k := sort.SearchInts(v.edges, i)
		return k < len(v.edges) && v.edges[k] == i
	}
	return v.Text[i-1] == ' ' || v.Text[i] == ' '
}

type builder struct {
	sb    strings.Builder
	start []int
	end   []int
}

func (b *builder) writeRune(r rune, s, e int) {
	n := utf8.RuneLen(r)
	if n < 0 {
		r, n = utf8.RuneError, utf8.RuneLen(utf8.RuneError)
	}
	b.sb.WriteRune(r)
	for i := 0; i < n; i++ {
		b.start = append(b.start, s)
		b.end = append(b.end, e)
	}
}

// extend stretches the original range of the last n bytes written to e.
func (b *builder) extend(n, e int) {
	for i := len(b.end) - n; i < len(b.end); i++ {
		b.end[i] = e
	}
}

func (b *builder) view() View {
	return View{Text: b.sb.String(), start: b.start, end: b.end}
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', 'ʼ', '`':
		return true
	}
	return false
}

// Lower folds case, decomposes compatibility characters and drops
// combining marks. Curly apostrophes become '.
func Lower(text string) View {
	strip := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	b := &builder{
		start: make([]int, 0, len(text)),
		end:   make([]int, 0, len(text)),
	}
	for i, r := range text {
		size := utf8.RuneLen(r)
		if size < 0 {
			size = 1
		}
		e := i + size
		if isApostrophe(r) {
			b.writeRune('\'', i, e)
			continue
		}
		if r < utf8.RuneSelf {
			b.writeRune(unicode.ToLower(r), i, e)
			continue
		}
		folded, _, err := transform.String(strip, string(r))
		if err != nil {
			folded = string(r)
		}
		for _, fr := range folded {
			b.writeRune(unicode.ToLower(fr), i, e)
		}
	}
	return b.view()
}
