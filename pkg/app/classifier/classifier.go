package classifier

import (
	"math"
	"time"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type Level string

const (
	LevelAllowed Level = "allowed"
	LevelReview  Level = "review"
	LevelCrisis  Level = "crisis"
)

type Config struct {
	CrisisThreshold int
	ReviewThreshold int
	RecencyWeight   float64
	RecencyWindow   time.Duration
	TrendWeight     float64
	HistorySize     int
}

func (c Config) Level(score int) Level {
	switch {
	case score >= c.CrisisThreshold:
		return LevelCrisis
	case score >= c.ReviewThreshold:
		return LevelReview
	default:
		return LevelAllowed
	}
}

// Observation is one earlier decision of the same session.
type Observation struct {
	Score int
	At    time.Time
}

// SessionContext carries the prior decisions of a session, oldest first.
type SessionContext struct {
	SessionID string
	History   []Observation
}

type Assessment struct {
	Score      int              `json:"score"`
	Category   pattern.Category `json:"category,omitempty"`
	Base       int              `json:"base"`
	Multiplier float64          `json:"multiplier"`
	Level      Level            `json:"level"`
}

type Classifier struct {
	cfg Config
}

func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Config() Config {
	return c.cfg
}

// Classify scores the distinct matched entries. Session history only
// scales risk that the text itself carries.
func (c *Classifier) Classify(session SessionContext, entries []pattern.Entry, now time.Time) Assessment {
	if len(entries) == 0 {
		return Assessment{Multiplier: 1, Level: LevelAllowed}
	}

	base := 0
	var top pattern.Entry
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := e.ID.String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		base += e.Weight
		if i == 0 || outranks(e, top) {
			top = e
		}
	}

	mult := c.multiplier(session, now)
	score := int(math.Round(float64(base) * mult))
	if score > pattern.MaxWeight {
		score = pattern.MaxWeight
	}
	if score < 0 {
		score = 0
	}
	return Assessment{
		Score:      score,
		Category:   top.Category,
		Base:       base,
		Multiplier: mult,
		Level:      c.cfg.Level(score),
	}
}

func outranks(a, b pattern.Entry) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Category.Priority() < b.Category.Priority()
}

func (c *Classifier) multiplier(session SessionContext, now time.Time) float64 {
	history := session.History
	recency := 0.0
	for i := len(history) - 1; i >= 0; i-- {
		obs := history[i]
		if obs.Score < c.cfg.ReviewThreshold {
			continue
		}
		age := now.Sub(obs.At)
		if age < 0 {
			age = 0
		}
		if c.cfg.RecencyWindow > 0 && age < c.cfg.RecencyWindow {
			recency = c.cfg.RecencyWeight * (1 - float64(age)/float64(c.cfg.RecencyWindow))
		}
		break
	}

	recent := history
	if c.cfg.HistorySize >= 0 && len(recent) > c.cfg.HistorySize {
		recent = recent[len(recent)-c.cfg.HistorySize:]
	}
	elevated := 0
	for _, obs := range recent {
		if obs.Score >= c.cfg.ReviewThreshold {
			elevated++
		}
	}
	return 1 + recency + c.cfg.TrendWeight*float64(elevated)
}
