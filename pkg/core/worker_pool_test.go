package core

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadRange_CoversWithoutOverlap(t *testing.T) {
	tests := []struct {
		name  string
		total int
		parts int
	}{
		{"even split", 100, 4},
		{"remainder", 103, 4},
		{"more parts than items", 3, 8},
		{"empty", 0, 4},
		{"single part", 17, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			covered := make([]int, tt.total)
			prevEnd := 0
			for p := 0; p < tt.parts; p++ {
				begin, end := ThreadRange(tt.total, tt.parts, p)
				assert.Equal(t, prevEnd, begin, "ranges must be contiguous")
				assert.LessOrEqual(t, begin, end)
				for i := begin; i < end; i++ {
					covered[i]++
				}
				prevEnd = end
			}
			assert.Equal(t, tt.total, prevEnd)
			for i, c := range covered {
				assert.Equal(t, 1, c, "index %d covered %d times", i, c)
			}
		})
	}
}

func TestWorkerPool_EnqueueLoop(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Stop()

	results := make([]int, 64)
	task := pool.EnqueueLoop(func(i int) {
		results[i] = i * i
	}, 0, len(results))
	task.Wait()

	for i, r := range results {
		if r != i*i {
			t.Errorf("Expected %d at index %d, got %d", i*i, i, r)
		}
	}
}

func TestWorkerPool_EmptyLoop(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Stop()

	var calls atomic.Int32
	pool.EnqueueLoop(func(int) { calls.Add(1) }, 5, 5).Wait()
	assert.Equal(t, int32(0), calls.Load())
}

func TestWorkerPool_ParallelRanges(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Stop()
	require.Equal(t, 3, pool.GetNumWorkers())

	data := make([]int, 1000)
	var mu sync.Mutex
	seenParts := map[int]bool{}
	pool.ParallelRanges(len(data), func(part, begin, end int) {
		mu.Lock()
		seenParts[part] = true
		mu.Unlock()
		for i := begin; i < end; i++ {
			data[i]++
		}
	})

	assert.Len(t, seenParts, 3)
	for i, v := range data {
		if v != 1 {
			t.Fatalf("Expected element %d written once, got %d", i, v)
		}
	}
}

func TestWorkerPool_ConcurrentLoops(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Stop()

	var wg sync.WaitGroup
	var total atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.EnqueueLoop(func(i int) { total.Add(int64(i)) }, 0, 100).Wait()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8*4950), total.Load())
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	pool := NewWorkerPool(2)
	var ran atomic.Int64
	pool.EnqueueLoop(func(int) { ran.Add(1) }, 0, 10).Wait()
	assert.False(t, pool.Stopped())

	pool.Stop()
	pool.Stop()
	assert.True(t, pool.Stopped())

	assert.PanicsWithValue(t, "core: worker pool stopped", func() {
		pool.EnqueueLoop(func(int) { ran.Add(1) }, 0, 10)
	})
	assert.Equal(t, int64(10), ran.Load())
}

func TestWorkerPool_StopWaitsForQueuedLoops(t *testing.T) {
	pool := NewWorkerPool(1)
	var ran atomic.Int64
	// Far more indices than the queue buffers, so feeding outlives this call
	task := pool.EnqueueLoop(func(int) { ran.Add(1) }, 0, 1000)
	pool.Stop()

	task.Wait()
	require.Equal(t, int64(1000), ran.Load())
}
