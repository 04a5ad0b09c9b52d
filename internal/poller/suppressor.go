package poller

import (
	"sync"

	"hwbot/internal/fault"
)

// Suppressor counts error occurrences per category and gates notifications:
// only the occurrence that finds the counter at zero is reported.
type Suppressor struct {
	mu     sync.Mutex
	policy ResetPolicy
	counts map[fault.Kind]int
}

func NewSuppressor(policy ResetPolicy) *Suppressor {
	if policy == "" {
		policy = ResetOnSuccess
	}
	return &Suppressor{policy: policy, counts: map[fault.Kind]int{}}
}

// Allow records one occurrence of kind and reports whether it is the first
// since the last reset.
func (s *Suppressor) Allow(kind fault.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.counts[kind] == 0
	s.counts[kind]++
	return first
}

// Count returns the occurrences of kind since the last reset.
func (s *Suppressor) Count(kind fault.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

// CycleSucceeded applies the reset policy after an error-free cycle.
// It reports whether counters were cleared.
func (s *Suppressor) CycleSucceeded() bool {
	if s.policy != ResetOnSuccess {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.counts) == 0 {
		return false
	}
	clear(s.counts)
	return true
}
