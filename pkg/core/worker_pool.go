package core

import (
	"runtime"
	"sync"
)

// loopTask is a single index of a submitted loop
type loopTask struct {
	fn    func(index int)
	index int
	done  *LoopTask
}

// LoopTask is the handle returned by EnqueueLoop
type LoopTask struct {
	wg sync.WaitGroup
}

// Wait blocks until every index of the loop has run
func (lt *LoopTask) Wait() {
	lt.wg.Wait()
}

// WorkerPool runs loop bodies on a fixed set of worker goroutines
type WorkerPool struct {
	taskQueue  chan loopTask
	numWorkers int
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once

	// mu is held for reading while a loop is being fed to the queue
	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &WorkerPool{
		taskQueue:  make(chan loopTask, numWorkers*4),
		numWorkers: numWorkers,
	}
}

// Start begins all workers. Calling it more than once has no effect.
func (wp *WorkerPool) Start() {
	wp.startOnce.Do(func() {
		for i := 0; i < wp.numWorkers; i++ {
			wp.wg.Add(1)
			go wp.run()
		}
	})
}

// Stop shuts down all workers after the queued tasks finish. Calling it
// more than once has no effect.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		close(wp.taskQueue)
		wp.mu.Unlock()
		wp.wg.Wait()
	})
}

// Stopped reports whether Stop has been called
func (wp *WorkerPool) Stopped() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.stopped
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// EnqueueLoop submits fn(i) for every i in [begin, end) and returns a handle
// to wait on. The pool is started on first use. Panics if the pool has been
// stopped.
func (wp *WorkerPool) EnqueueLoop(fn func(index int), begin, end int) *LoopTask {
	wp.mu.RLock()
	if wp.stopped {
		wp.mu.RUnlock()
		panic("core: worker pool stopped")
	}
	wp.Start()

	lt := &LoopTask{}
	if end <= begin {
		wp.mu.RUnlock()
		return lt
	}
	lt.wg.Add(end - begin)
	go func() {
		defer wp.mu.RUnlock()
		for i := begin; i < end; i++ {
			wp.taskQueue <- loopTask{fn: fn, index: i, done: lt}
		}
	}()
	return lt
}

// ParallelRanges splits [0, total) into one contiguous range per worker and
// runs fn on each range, blocking until all of them return. The ranges never
// overlap, so fn may write to the elements of its own range without locking.
func (wp *WorkerPool) ParallelRanges(total int, fn func(part, begin, end int)) {
	parts := wp.numWorkers
	task := wp.EnqueueLoop(func(part int) {
		begin, end := ThreadRange(total, parts, part)
		if begin < end {
			fn(part, begin, end)
		}
	}, 0, parts)
	task.Wait()
}

// ThreadRange returns the half-open range of [0, total) owned by part when
// the work is split into numParts contiguous pieces. Earlier parts receive
// the remainder so range sizes differ by at most one.
func ThreadRange(total, numParts, part int) (int, int) {
	size := total / numParts
	rest := total % numParts
	begin := part*size + min(part, rest)
	end := begin + size
	if part < rest {
		end++
	}
	return begin, end
}

// run is the main worker loop
func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		task.fn(task.index)
		task.done.wg.Done()
	}
}
