package textnorm_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/NeuralTrust/CareGuard/pkg/app/textnorm"
)

func TestLower_FoldsCaseAndMarks(t *testing.T) {
	v := textnorm.Lower("Él QUIERE morir… I don’t")
	assert.Equal(t, "el quiere morir... i don't", v.Text)

	s, e := v.Original(0, 2)
	assert.Equal(t, 0, s)
	assert.Equal(t, 3, e, "É is two bytes in the original")
}

func TestCompact(t *testing.T) {
	cases := map[string]string{
		"I want to K.I.L.L myself": "i want to kil myself",
		"k!ll mys3lf":              "kil myself",
		"$uicide":                  "suicide",
		"I don't want to be here":  "i dont want to be here",
		"diiiiie   ---  now!!!":    "die now",
		"take 50 mg":               "take 50 mg",
		"end  it\tall":             "end it al",
		"wait... what?! ok":        "wait what ok",
		"s u i c i d e":            "suicide",
		"a b":                      "a b",
	}
	for in, want := range cases {
		assert.Equal(t, want, textnorm.Compact(textnorm.Lower(in)).Text, in)
	}
}

func TestCompact_SpansMapBack(t *testing.T) {
	text := "ok so I want to k.i.l.l myself"
	v := textnorm.Compact(textnorm.Lower(text))
	idx := len("ok so i want to ")
	word := "kil myself"
	assert.Equal(t, word, v.Text[idx:idx+len(word)])

	s, e := v.Original(idx, idx+len(word))
	assert.Equal(t, "k.i.l.l myself", text[s:e])
}

func TestCompactString_MatchesPatternForm(t *testing.T) {
	assert.Equal(t, "dont want to be here anymore", textnorm.CompactString("Don't want to be here anymore"))
	assert.Equal(t, "kil myself", textnorm.CompactString("kill myself"))
}

func TestJoin(t *testing.T) {
	cases := map[string]string{
		"k.i.l.l m.y.s.e.l.f": "kilmyself",
		"k i l l m y s e l f": "kilmyself",
		"killmyself":          "kilmyself",
		"sui_cide":            "suicide",
		"kil l my-self":       "kilmyself",
		"want to die":         "wantodie",
	}
	for in, want := range cases {
		assert.Equal(t, want, textnorm.Join(textnorm.Compact(textnorm.Lower(in))).Text, in)
	}
	assert.Equal(t, "kilmyself", textnorm.JoinString("kill myself"))
}

func TestJoin_KeepsWordEdges(t *testing.T) {
	text := "he said sui_cide"
	v := textnorm.Join(textnorm.Compact(textnorm.Lower(text)))
	assert.Equal(t, "hesaidsuicide", v.Text)

	for _, at := range []int{0, 2, 6, 9, 13} {
		assert.True(t, v.WordEdge(at), at)
	}
	for _, at := range []int{1, 3, 7, 10} {
		assert.False(t, v.WordEdge(at), at)
	}

	s, e := v.Original(6, 13)
	assert.Equal(t, "sui_cide", text[s:e])
}

func TestWordEdge_CompactView(t *testing.T) {
	v := textnorm.Compact(textnorm.Lower("kill him"))
	assert.Equal(t, "kil him", v.Text)
	assert.True(t, v.WordEdge(0))
	assert.True(t, v.WordEdge(3))
	assert.True(t, v.WordEdge(4))
	assert.True(t, v.WordEdge(7))
	assert.False(t, v.WordEdge(2))
}

func TestView_OriginalOutOfRange(t *testing.T) {
	v := textnorm.Lower("abc")
	s, e := v.Original(2, 9)
	assert.Equal(t, 0, s)
	assert.Equal(t, 0, e)
}

func TestCompact_SpansStayInsideOriginal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every compact byte maps to a valid original range", prop.ForAll(
		func(text string) bool {
			v := textnorm.Compact(textnorm.Lower(text))
			for i := 0; i < len(v.Text); i++ {
				s, e := v.Original(i, i+1)
				if s < 0 || e > len(text) || s > e {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))
	properties.Property("every joined byte maps to a valid original range", prop.ForAll(
		func(text string) bool {
			v := textnorm.Join(textnorm.Compact(textnorm.Lower(text)))
			for i := 0; i < len(v.Text); i++ {
				s, e := v.Original(i, i+1)
				if s < 0 || e > len(text) || s > e {
					return false
				}
			}
			return v.WordEdge(0) && v.WordEdge(len(v.Text))
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
