package classifier

import (
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
)

// minRetained keeps enough history for the recency lookback even when the
// trend window is small.
const minRetained = 10

// SessionHistory keeps recent observations per session in a TTL map, so
// idle sessions drop out on their own.
type SessionHistory struct {
	m    *cache.TTLMap
	keep int
}

func NewSessionHistory(m *cache.TTLMap, historySize int) *SessionHistory {
	keep := historySize
	if keep < minRetained {
		keep = minRetained
	}
	return &SessionHistory{m: m, keep: keep}
}

func (h *SessionHistory) Context(sessionID string) SessionContext {
	v, ok := h.m.Get(sessionID)
	if !ok {
		return SessionContext{SessionID: sessionID}
	}
	obs, _ := v.([]Observation)
	out := make([]Observation, len(obs))
	copy(out, obs)
	return SessionContext{SessionID: sessionID, History: out}
}

func (h *SessionHistory) Record(sessionID string, obs Observation) {
	h.m.Update(sessionID, func(cur interface{}) interface{} {
		prev, _ := cur.([]Observation)
		next := make([]Observation, 0, len(prev)+1)
		next = append(next, prev...)
		next = append(next, obs)
		if len(next) > h.keep {
			next = next[len(next)-h.keep:]
		}
		return next
	})
}

func (h *SessionHistory) Sweep() int {
	return h.m.Sweep()
}
