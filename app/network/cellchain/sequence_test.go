package cellchain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_StrictlyIncreasing(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	s := &Sequence{now: func() time.Time { return frozen }}

	first := s.Next()
	assert.Equal(t, uint64(frozen.UnixMicro()), first)
	assert.Equal(t, first+1, s.Next())
	assert.Equal(t, first+2, s.Next())
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence()

	const workers, perWorker = 8, 500
	ids := make(chan uint64, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}
