package websocket

const defaultMaxConnections = 256

type SemaphoreOption func(*Semaphore)

func WithMaxConnections(n int) SemaphoreOption {
	return func(s *Semaphore) {
		if n > 0 {
			s.connections = make(chan struct{}, n)
		}
	}
}

// Semaphore caps concurrent feed connections without blocking the caller.
type Semaphore struct {
	connections chan struct{}
}

func NewSemaphore(opts ...SemaphoreOption) *Semaphore {
	s := &Semaphore{connections: make(chan struct{}, defaultMaxConnections)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Semaphore) Acquire() bool {
	select {
	case s.connections <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Semaphore) Release() {
	select {
	case <-s.connections:
	default:
	}
}

func (s *Semaphore) Current() int {
	return len(s.connections)
}

func (s *Semaphore) Capacity() int {
	return cap(s.connections)
}
