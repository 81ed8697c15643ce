package coherence

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestConcurrentStoresConvergeToSingleWriter hammers one line from many
// goroutines across several caches and checks the single-writer
// invariant holds once the dust settles: at any instant at most one
// cache may hold the line Modified or Exclusive, honoring the
// single-writer-or-multiple-readers rule.
func TestConcurrentStoresConvergeToSingleWriter(t *testing.T) {
	mem := newFakeMemory(64)
	bus := NewInterconnect()

	const numCaches = 4
	caches := make([]*Cache, numCaches)
	for i := range caches {
		caches[i] = NewCache(mem, WithID(i), WithBus(bus))
	}

	var wg sync.WaitGroup
	var stores atomic.Int64
	for i, c := range caches {
		wg.Add(1)
		go func(idx int, c *Cache) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				if _, err := c.StoreWord(0, uint64(idx*1000+n)); err != nil {
					t.Errorf("cache %d store: %v", idx, err)
					return
				}
				stores.Add(1)
			}
		}(i, c)
	}
	wg.Wait()

	require.Equal(t, int64(numCaches*50), stores.Load())

	require.Eventually(t, func() bool {
		owners := 0
		for _, c := range caches {
			if mesi, ok := c.GetLineMESI(0); ok && (mesi == MESIModified || mesi == MESIExclusive) {
				owners++
			}
		}
		return owners <= 1
	}, time.Second, time.Millisecond, "at most one cache may hold the line exclusively")
}
