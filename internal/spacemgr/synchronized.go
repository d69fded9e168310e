package spacemgr

import "sync"

// Synchronized guards a Manager with a single mutex so it can be shared
// between goroutines. The bitmap and the chain are updated separately, so
// every call holds the lock for its whole duration.
type Synchronized struct {
	mu sync.Mutex
	m  *Manager
}

func NewSynchronized(m *Manager) *Synchronized {
	return &Synchronized{m: m}
}

func (s *Synchronized) Allocate(start, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Allocate(start, n)
}

func (s *Synchronized) Deallocate(start, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Deallocate(start, n)
}

func (s *Synchronized) Reset(capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Reset(capacity)
}

func (s *Synchronized) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Groups()
}

func (s *Synchronized) FreeExtents() []FreeExtent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.FreeExtents()
}

func (s *Synchronized) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Verify()
}
