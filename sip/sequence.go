package sip

import "sync"

// Sequence is a CSeq number generator shared by the requests of one dialog.
type Sequence struct {
	mu   sync.Mutex
	last int
}

// NewSequence creates a sequence whose next number is last+1.
func NewSequence(last int) *Sequence {
	return &Sequence{last: last}
}

// Next increments the sequence and returns the new number.
func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Last returns the most recently allocated number.
func (s *Sequence) Last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
