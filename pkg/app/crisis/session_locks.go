package crisis

import "sync"

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// SessionLocks hands out one mutex per session id. Entries are reference
// counted and dropped once nobody holds or waits on them.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sessionLock)}
}

// Lock blocks until the session is free and returns the unlock func.
func (s *SessionLocks) Lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, sessionID)
			}
			s.mu.Unlock()
		})
	}
}

// Len is the number of sessions currently locked or waited on.
func (s *SessionLocks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
