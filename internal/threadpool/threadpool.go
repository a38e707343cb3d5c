// Package threadpool tracks how many goroutines are in flight against a
// fixed worker budget and splits that budget between splitter and writer
// goroutines, ported from the atomic active-thread counter and allocation
// strategies of the original thread pool manager, using the semaphore
// channel idiom the teacher pipeline uses for bounded fan-out.
package threadpool

import "sync/atomic"

// Manager tracks active goroutine count against a fixed ceiling using an
// atomic counter, the same bookkeeping style as the original manager's
// AtomicUsize active-thread count.
type Manager struct {
	maxWorkers int64
	active     int64
}

// NewManager returns a Manager that allows at most maxWorkers concurrent
// allocations. A maxWorkers below 1 is raised to 1.
func NewManager(maxWorkers int) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Manager{maxWorkers: int64(maxWorkers)}
}

// Active returns the current number of allocated workers.
func (m *Manager) Active() int {
	return int(atomic.LoadInt64(&m.active))
}

// Available returns how many more workers can currently be allocated.
func (m *Manager) Available() int {
	active := atomic.LoadInt64(&m.active)
	if active < m.maxWorkers {
		return int(m.maxWorkers - active)
	}
	return 0
}

// CanSpawn reports whether at least one more worker can be allocated.
func (m *Manager) CanSpawn() bool {
	return atomic.LoadInt64(&m.active) < m.maxWorkers
}

// Allocate reserves up to requested workers, capped by what's available,
// and returns the number actually reserved.
func (m *Manager) Allocate(requested int) int {
	available := m.Available()
	allocated := requested
	if allocated > available {
		allocated = available
	}
	if allocated > 0 {
		atomic.AddInt64(&m.active, int64(allocated))
	}
	return allocated
}

// Release returns count previously allocated workers to the pool.
func (m *Manager) Release(count int) {
	if count > 0 {
		atomic.AddInt64(&m.active, -int64(count))
	}
}

// Stats returns (max, active, available) for logging.
func (m *Manager) Stats() (int, int, int) {
	return int(m.maxWorkers), m.Active(), m.Available()
}

// Allocation is a fixed split of a total worker budget between record
// splitters and output writers.
type Allocation struct {
	Splitters int
	Writers   int
}

// BalancedAllocation splits total workers between splitters and writers
// by processingRatio, guaranteeing at least one splitter. This mirrors
// the original's Balanced allocation strategy; the pipeline uses a
// default ratio of 0.8.
func BalancedAllocation(total int, processingRatio float64) Allocation {
	splitters := int(float64(total) * processingRatio)
	if splitters < 1 {
		splitters = 1
	}
	if splitters > total {
		splitters = total
	}
	return Allocation{Splitters: splitters, Writers: total - splitters}
}

// Semaphore is a counting semaphore used to bound goroutine fan-out, the
// same channel-based idiom the splitter workers use to cap concurrency.
type Semaphore chan struct{}

// NewSemaphore returns a Semaphore allowing up to n concurrent holders.
func NewSemaphore(n int) Semaphore {
	return make(Semaphore, n)
}

// Acquire blocks until a slot is free.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot.
func (s Semaphore) Release() { <-s }
