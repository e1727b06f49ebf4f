package debounce

import "go.uber.org/atomic"

// Signal is the raw per-frame detection cell. It has exactly one writer (the
// frame pipeline) and one reader (the poll loop).
type Signal struct {
	v atomic.Bool
}

// NewSignal returns a signal holding false
func NewSignal() *Signal {
	return &Signal{}
}

// Set stores the latest raw reading
func (s *Signal) Set(v bool) {
	s.v.Store(v)
}

// Get returns the latest raw reading
func (s *Signal) Get() bool {
	return s.v.Load()
}
