package dictionary

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/app/textnorm"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type Source string

const (
	SourceStore    Source = "store"
	SourceDefaults Source = "defaults"
)

// Matcher is an entry ready for scanning. Literal holds the compacted
// form of a literal pattern and Joined the same form without word gaps.
// Regex is the compiled form of a regex pattern.
type Matcher struct {
	Entry   pattern.Entry
	Literal string
	Joined  string
	Regex   *regexp.Regexp
}

// Snapshot is an immutable view of the active dictionary. Readers may hold
// one for as long as they like.
type Snapshot struct {
	Generation uint64
	IssuedAt   time.Time
	Source     Source
	Matchers   []Matcher
	byID       map[uuid.UUID]int
}

func compile(e pattern.Entry) (Matcher, error) {
	m := Matcher{Entry: e}
	switch e.Kind {
	case pattern.KindRegex:
		re, err := regexp.Compile("(?i)" + e.Pattern)
		if err != nil {
			return m, fmt.Errorf("pattern %s v%d: %w", e.Key, e.Version, err)
		}
		m.Regex = re
	case pattern.KindLiteral, "":
		m.Literal = textnorm.CompactString(e.Pattern)
		if m.Literal == "" {
			return m, fmt.Errorf("pattern %s v%d: literal is empty after normalization", e.Key, e.Version)
		}
		m.Joined = textnorm.JoinString(e.Pattern)
	default:
		return m, fmt.Errorf("pattern %s v%d: unknown kind %q", e.Key, e.Version, e.Kind)
	}
	return m, nil
}

// newSnapshot orders matchers by category priority, then weight
// descending, then key.
func newSnapshot(generation uint64, issuedAt time.Time, source Source, matchers []Matcher) *Snapshot {
	sorted := make([]Matcher, len(matchers))
	copy(sorted, matchers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Entry, sorted[j].Entry
		if pa, pb := a.Category.Priority(), b.Category.Priority(); pa != pb {
			return pa < pb
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Key < b.Key
	})
	byID := make(map[uuid.UUID]int, len(sorted))
	for i, m := range sorted {
		byID[m.Entry.ID] = i
	}
	return &Snapshot{
		Generation: generation,
		IssuedAt:   issuedAt,
		Source:     source,
		Matchers:   sorted,
		byID:       byID,
	}
}

// NewSnapshot compiles entries into a standalone generation-zero snapshot.
func NewSnapshot(entries ...pattern.Entry) (*Snapshot, error) {
	matchers := make([]Matcher, 0, len(entries))
	var errs []error
	for _, e := range entries {
		m, err := compile(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matchers = append(matchers, m)
	}
	return newSnapshot(0, time.Time{}, SourceDefaults, matchers), errors.Join(errs...)
}

// Lookup returns the entries of one category, or all entries when category
// is empty.
func (s *Snapshot) Lookup(category pattern.Category) []pattern.Entry {
	out := make([]pattern.Entry, 0, len(s.Matchers))
	for _, m := range s.Matchers {
		if category == "" || m.Entry.Category == category {
			out = append(out, m.Entry)
		}
	}
	return out
}

func (s *Snapshot) Get(id uuid.UUID) (pattern.Entry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return pattern.Entry{}, false
	}
	return s.Matchers[i].Entry, true
}

func (s *Snapshot) Contains(id uuid.UUID) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Snapshot) Len() int {
	return len(s.Matchers)
}
