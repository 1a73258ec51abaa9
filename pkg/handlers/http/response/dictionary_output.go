package response

import (
	"time"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type DictionaryOutput struct {
	Generation uint64          `json:"generation"`
	IssuedAt   time.Time       `json:"issued_at"`
	Source     string          `json:"source"`
	Count      int             `json:"count"`
	Entries    []pattern.Entry `json:"entries,omitempty"`
}

// NewDictionaryOutput describes snap. Entries are filtered by category, and
// left out entirely when withEntries is false.
func NewDictionaryOutput(snap *dictionary.Snapshot, category pattern.Category, withEntries bool) DictionaryOutput {
	out := DictionaryOutput{
		Generation: snap.Generation,
		IssuedAt:   snap.IssuedAt,
		Source:     string(snap.Source),
		Count:      snap.Len(),
	}
	if withEntries {
		out.Entries = snap.Lookup(category)
		out.Count = len(out.Entries)
	}
	return out
}
