package cellchain

import (
	"sync/atomic"
	"time"
)

// Sequence hands out correlation ids for outgoing messages. Ids are seeded from
// the wall clock in microseconds and strictly increase within a process, so they
// do not repeat across restarts either.
type Sequence struct {
	last atomic.Uint64
	now  func() time.Time
}

func NewSequence() *Sequence {
	return &Sequence{now: time.Now}
}

func (s *Sequence) Next() uint64 {
	for {
		prev := s.last.Load()
		next := uint64(s.now().UnixMicro())
		if next <= prev {
			next = prev + 1
		}
		if s.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
