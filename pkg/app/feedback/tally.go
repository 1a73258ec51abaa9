package feedback

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type sample struct {
	verdictID     uuid.UUID
	at            time.Time
	falsePositive bool
}

// Tally is the windowed verdict count of one pattern version.
type Tally struct {
	PatternID      uuid.UUID `json:"pattern_id"`
	Samples        int       `json:"samples"`
	FalsePositives int       `json:"false_positives"`
}

func (t Tally) FalsePositiveRate() float64 {
	if t.Samples == 0 {
		return 0
	}
	return float64(t.FalsePositives) / float64(t.Samples)
}

type window struct {
	samples []sample
}

func (w *window) add(s sample) {
	w.samples = append(w.samples, s)
}

func (w *window) prune(cutoff time.Time) {
	kept := w.samples[:0]
	for _, s := range w.samples {
		if !s.at.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	w.samples = kept
}

// countSince counts the samples recorded after at.
func (w *window) countSince(at time.Time) int {
	n := 0
	for _, s := range w.samples {
		if s.at.After(at) {
			n++
		}
	}
	return n
}

func (w *window) tally(id uuid.UUID) Tally {
	t := Tally{PatternID: id, Samples: len(w.samples)}
	for _, s := range w.samples {
		if s.falsePositive {
			t.FalsePositives++
		}
	}
	return t
}

// Rules holds the thresholds that turn a tally into a weight proposal.
type Rules struct {
	MinSamples           int
	FalsePositiveCeiling float64
	ReductionStep        float64
	CrisisWeightFloor    int
}

func (r Rules) Floor(category pattern.Category) int {
	if category.IsCrisis() {
		return r.CrisisWeightFloor
	}
	return 0
}

// Clamp keeps weight inside [floor, MaxWeight] for the category.
func (r Rules) Clamp(category pattern.Category, weight int) int {
	if floor := r.Floor(category); weight < floor {
		weight = floor
	}
	if weight > pattern.MaxWeight {
		weight = pattern.MaxWeight
	}
	return weight
}

// Propose returns the reduced weight for entry, or false when the tally
// does not justify a change.
func (r Rules) Propose(entry pattern.Entry, t Tally) (int, bool) {
	if t.Samples < r.MinSamples || t.FalsePositiveRate() <= r.FalsePositiveCeiling {
		return entry.Weight, false
	}
	floor := r.Floor(entry.Category)
	if entry.Weight <= floor {
		return entry.Weight, false
	}
	proposed := int(math.Round(float64(entry.Weight) * (1 - r.ReductionStep)))
	if proposed < floor {
		proposed = floor
	}
	if proposed >= entry.Weight {
		return entry.Weight, false
	}
	return proposed, true
}
