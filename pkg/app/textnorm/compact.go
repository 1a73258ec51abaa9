package textnorm

import (
	"unicode"
	"unicode/utf8"
)

// minJoinRun is how many single-letter tokens in a row are read as one
// spelled-out word ("k.i.l.l").
const minJoinRun = 3

var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'@': 'a',
	'$': 's',
	'!': 'i',
	'|': 'l',
	'+': 't',
}

func isLeetSymbol(r rune) bool {
	switch r {
	case '@', '$', '!', '|', '+':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

type glyph struct {
	r    rune
	s, e int
}

type token []glyph

func (t token) hasLetter() bool {
	for _, g := range t {
		if unicode.IsLetter(g.r) {
			return true
		}
	}
	return false
}

func (t token) hasDigit() bool {
	for _, g := range t {
		if unicode.IsDigit(g.r) {
			return true
		}
	}
	return false
}

func (t token) singleLetter() bool {
	return len(t) == 1 && unicode.IsLetter(t[0].r)
}

// Compact derives the evasion-tolerant view from a lowered view. Words are
// separated by exactly one space and contain only letters and digits.
func Compact(lowered View) View {
	tokens := tokenize(lowered)
	tokens = joinSingles(tokens)

	b := &builder{}
	for i, tok := range tokens {
		tok = collapseRepeats(tok)
		if i > 0 {
			prev := tokens[i-1]
			b.writeRune(' ', prev[len(prev)-1].e, tok[0].s)
		}
		for _, g := range tok {
			b.writeRune(g.r, g.s, g.e)
		}
	}
	return b.view()
}

// CompactString runs both normalizations over a pattern literal.
func CompactString(s string) string {
	return Compact(Lower(s)).Text
}

// Join drops the gaps of a compact view so a word broken up by separators
// ("k i l l m y s e l f", "sui_cide") reads as one. A letter repeated across
// a gap collapses as it does inside a word. The former gaps stay available
// through WordEdge.
func Join(compact View) View {
	b := &builder{}
	edges := []int{0}
	var last rune
	lastSize := 0
	gap := false
	for i := 0; i < len(compact.Text); {
		r, size := utf8.DecodeRuneInString(compact.Text[i:])
		s, e := compact.start[i], compact.end[i+size-1]
		i += size
		if r == ' ' {
			gap = true
			continue
		}
		if gap {
			gap = false
			edges = append(edges, b.sb.Len())
			if r == last && unicode.IsLetter(r) {
				b.extend(lastSize, e)
				continue
			}
		}
		b.writeRune(r, s, e)
		last, lastSize = r, utf8.RuneLen(r)
	}
	v := b.view()
	v.edges = append(edges, len(v.Text))
	return v
}

// JoinString is the joined form of a pattern literal.
func JoinString(s string) string {
	return Join(Compact(Lower(s))).Text
}

func tokenize(v View) []token {
	rs := make([]glyph, 0, len(v.Text))
	for i, r := range v.Text {
		rs = append(rs, glyph{r: r, s: v.start[i], e: v.end[i]})
	}

	var tokens []token
	var cur token
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, cur)
			cur = nil
		}
	}
	for i, g := range rs {
		switch {
		case isWordRune(g.r):
			cur = append(cur, g)
		case g.r == '\'':
			// dropped without splitting the word
		case isLeetSymbol(g.r) && leadsIntoWord(rs, i):
			cur = append(cur, g)
		default:
			flush()
		}
	}
	flush()

	out := tokens[:0]
	for _, tok := range tokens {
		if tok.hasLetter() {
			for j, g := range tok {
				if m, ok := leet[g.r]; ok {
					tok[j].r = m
				}
			}
		} else if !tok.hasDigit() {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// leadsIntoWord reports whether the run of leet symbols starting at i is
// followed by a letter or digit.
func leadsIntoWord(rs []glyph, i int) bool {
	j := i
	for j < len(rs) && isLeetSymbol(rs[j].r) {
		j++
	}
	return j < len(rs) && isWordRune(rs[j].r)
}

func joinSingles(tokens []token) []token {
	out := make([]token, 0, len(tokens))
	for i := 0; i < len(tokens); {
		j := i
		for j < len(tokens) && tokens[j].singleLetter() {
			j++
		}
		if j-i >= minJoinRun {
			var joined token
			for _, t := range tokens[i:j] {
				joined = append(joined, t...)
			}
			out = append(out, joined)
			i = j
			continue
		}
		if j == i {
			out = append(out, tokens[i])
			i++
			continue
		}
		out = append(out, tokens[i:j]...)
		i = j
	}
	return out
}

func collapseRepeats(tok token) token {
	out := make(token, 0, len(tok))
	for _, g := range tok {
		if n := len(out); n > 0 && out[n-1].r == g.r && unicode.IsLetter(g.r) {
			out[n-1].e = g.e
			continue
		}
		out = append(out, g)
	}
	return out
}
