package request

import (
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

// AddPatternRequest creates a new version of the entry named by Key. Omitted
// fields are carried over from the active version when there is one.
type AddPatternRequest struct {
	Key         string `json:"key"` // @required
	Category    string `json:"category"`
	Subtype     string `json:"subtype"`
	Pattern     string `json:"pattern"`
	Kind        string `json:"kind"`
	Weight      *int   `json:"severity_weight"`
	Description string `json:"description"`
}

func (r *AddPatternRequest) ToEntry(prior *pattern.Entry, author string) pattern.Entry {
	e := pattern.Entry{
		Key:         r.Key,
		Category:    pattern.Category(r.Category),
		Subtype:     pattern.Subtype(r.Subtype),
		Pattern:     r.Pattern,
		Kind:        pattern.Kind(r.Kind),
		Active:      true,
		Description: r.Description,
		CreatedBy:   author,
	}
	if r.Weight != nil {
		e.Weight = *r.Weight
	}
	if prior == nil {
		return e
	}
	if e.Category == "" {
		e.Category = prior.Category
		if e.Subtype == pattern.SubtypeNone {
			e.Subtype = prior.Subtype
		}
	}
	if e.Pattern == "" {
		e.Pattern = prior.Pattern
		if e.Kind == "" {
			e.Kind = prior.Kind
		}
	}
	if r.Weight == nil {
		e.Weight = prior.Weight
	}
	if e.Description == "" {
		e.Description = prior.Description
	}
	return e
}
