package saga

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardTryAcquire(t *testing.T) {
	g := NewGuard()

	assert.True(t, g.TryAcquire("c-1"))
	assert.False(t, g.TryAcquire("c-1"), "second acquire of a held id must fail")
	assert.True(t, g.TryAcquire("c-2"), "unrelated ids are independent")

	g.Release("c-1")
	assert.True(t, g.TryAcquire("c-1"), "released id can be re-acquired")
}

func TestGuardReleaseUnheldIsNoop(t *testing.T) {
	g := NewGuard()
	g.Release("never-held")
	assert.True(t, g.TryAcquire("never-held"))
}

func TestGuardConcurrentAcquire(t *testing.T) {
	g := NewGuard()

	const goroutines = 100
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire("c-1") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one concurrent acquire may win")
}
