package cache

import (
	"sync"
	"time"
)

type TTLEntry struct {
	Value     interface{}
	ExpiresAt time.Time
}

// TTLMap is a thread-safe map whose entries expire TTL after their last write.
type TTLMap struct {
	Data map[string]*TTLEntry
	Mu   sync.RWMutex
	TTL  time.Duration
	now  func() time.Time
}

func NewTTLMap(ttl time.Duration) *TTLMap {
	return &TTLMap{
		Data: make(map[string]*TTLEntry),
		TTL:  ttl,
		now:  time.Now,
	}
}

func (m *TTLMap) Get(key string) (interface{}, bool) {
	m.Mu.RLock()
	entry, exists := m.Data[key]
	if !exists {
		m.Mu.RUnlock()
		return nil, false
	}
	isExpired := m.now().After(entry.ExpiresAt)
	value := entry.Value
	m.Mu.RUnlock()

	if isExpired {
		m.Mu.Lock()
		if current, ok := m.Data[key]; ok && m.now().After(current.ExpiresAt) {
			delete(m.Data, key)
		}
		m.Mu.Unlock()
		return nil, false
	}

	return value, true
}

func (m *TTLMap) Set(key string, value interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	m.Data[key] = &TTLEntry{
		Value:     value,
		ExpiresAt: m.now().Add(m.TTL),
	}
}

// Update applies fn to the current live value (nil when absent or expired)
// and stores the result, all under the write lock.
func (m *TTLMap) Update(key string, fn func(current interface{}) interface{}) interface{} {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	var current interface{}
	if entry, ok := m.Data[key]; ok && !m.now().After(entry.ExpiresAt) {
		current = entry.Value
	}
	next := fn(current)
	m.Data[key] = &TTLEntry{
		Value:     next,
		ExpiresAt: m.now().Add(m.TTL),
	}
	return next
}

func (m *TTLMap) Delete(key string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	delete(m.Data, key)
}

// Sweep drops expired entries and returns how many were removed.
func (m *TTLMap) Sweep() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	now := m.now()
	removed := 0
	for k, e := range m.Data {
		if now.After(e.ExpiresAt) {
			delete(m.Data, k)
			removed++
		}
	}
	return removed
}

func (m *TTLMap) Len() int {
	m.Mu.RLock()
	defer m.Mu.RUnlock()
	return len(m.Data)
}

func (m *TTLMap) Clear() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Data = make(map[string]*TTLEntry)
}
