package boundary

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/NeuralTrust/CareGuard/pkg/app/prefilter"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
)

const (
	DiagnosisFallback = "I'm not able to offer a diagnosis. A licensed clinician can help you make sense of what you're experiencing."
	DosingFallback    = "I can't give advice about medication or doses. Your doctor or pharmacist is the right person to ask."
	LegalFallback     = "I can't give legal advice. A qualified attorney can help you with this."
	DefaultFallback   = "That's outside what I can help with as a coach. A qualified professional is the best person to ask."
)

// Fallbacks maps a scope subtype to the sentence that replaces it.
type Fallbacks map[pattern.Subtype]string

func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		pattern.SubtypeDiagnosis: DiagnosisFallback,
		pattern.SubtypeDosing:    DosingFallback,
		pattern.SubtypeLegal:     LegalFallback,
		pattern.SubtypeNone:      DefaultFallback,
	}
}

func (f Fallbacks) phrase(s pattern.Subtype) string {
	if p, ok := f[s]; ok && p != "" {
		return p
	}
	if p, ok := f[pattern.SubtypeNone]; ok && p != "" {
		return p
	}
	return DefaultFallback
}

type Result struct {
	Text       string
	Violations []violation.Violation
}

type Enforcer struct {
	fallbacks Fallbacks
}

func NewEnforcer(fallbacks Fallbacks) *Enforcer {
	merged := DefaultFallbacks()
	for k, v := range fallbacks {
		if v != "" {
			merged[k] = v
		}
	}
	return &Enforcer{fallbacks: merged}
}

type region struct {
	span  prefilter.Span
	entry pattern.Entry
}

// Enforce replaces every sentence carrying a scope_violation match with the
// fallback phrase for its subtype. It ignores every other category.
func (e *Enforcer) Enforce(text string, matches []prefilter.Match) Result {
	var regions []region
	for _, m := range matches {
		if m.Entry.Category != pattern.CategoryScopeViolation {
			continue
		}
		regions = append(regions, region{span: sentenceAround(text, m.Span), entry: m.Entry})
	}
	if len(regions) == 0 {
		return Result{Text: text}
	}

	sort.SliceStable(regions, func(i, j int) bool { return regions[i].span.Start < regions[j].span.Start })
	merged := regions[:1]
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.span.Start < last.span.End {
			if r.span.End > last.span.End {
				last.span.End = r.span.End
			}
			if r.entry.Weight > last.entry.Weight {
				last.entry = r.entry
			}
			continue
		}
		merged = append(merged, r)
	}

	var sb strings.Builder
	violations := make([]violation.Violation, 0, len(merged))
	cursor := 0
	for _, r := range merged {
		phrase := e.fallbacks.phrase(r.entry.Subtype)
		sb.WriteString(text[cursor:r.span.Start])
		sb.WriteString(phrase)
		cursor = r.span.End
		violations = append(violations, violation.Violation{
			PatternID:     r.entry.ID,
			ViolationType: violation.TypeFor(r.entry.Subtype),
			OriginalText:  text[r.span.Start:r.span.End],
			RedactedText:  phrase,
		})
	}
	sb.WriteString(text[cursor:])
	return Result{Text: sb.String(), Violations: violations}
}

// sentenceAround widens span to the sentence holding it, terminator
// included, leading whitespace excluded.
func sentenceAround(text string, span prefilter.Span) prefilter.Span {
	start := 0
	for i := span.Start - 1; i >= 0; i-- {
		if isTerminatorAt(text, i) {
			start = i + 1
			break
		}
	}
	for start < span.Start {
		r, size := utf8.DecodeRuneInString(text[start:])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}

	end := len(text)
	for i := span.End; i < len(text); i++ {
		if isTerminatorAt(text, i) {
			end = i + 1
			for end < len(text) && strings.ContainsRune(".!?", rune(text[end])) {
				end++
			}
			break
		}
	}
	if end < span.End {
		end = span.End
	}
	return prefilter.Span{Start: start, End: end}
}

// isTerminatorAt reports a sentence end at i: a newline, or . ! ? followed
// by whitespace or the end of text. "2.5" is not a sentence end.
func isTerminatorAt(text string, i int) bool {
	switch text[i] {
	case '\n':
		return true
	case '.', '!', '?':
		if i+1 == len(text) {
			return true
		}
		next := text[i+1]
		return next == ' ' || next == '\n' || next == '\t' || next == '\r'
	}
	return false
}
