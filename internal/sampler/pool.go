package sampler

import (
	"sync"
	"time"

	"github.com/wavecal/calibration-core/pkg/logger"
)

// Evaluator evaluates a batch of parameter vectors under an objective
// function. Map blocks until every evaluation has returned (the per-step
// barrier) and preserves input order in its result.
type Evaluator interface {
	Map(fn func([]float64) float64, thetas [][]float64) []float64

	// Close releases the evaluator's resources. Safe to call more than once;
	// only the first call has effect.
	Close()
}

// NewEvaluator returns a WorkerPool of the requested size, degrading to a
// synchronous evaluator when size permits no parallelism. Pool unavailability
// is never fatal.
func NewEvaluator(size int) Evaluator {
	if size <= 1 {
		if size < 1 {
			logger.Warn("worker pool unavailable, evaluating synchronously", "requested", size)
		}
		return &syncEvaluator{}
	}
	return newWorkerPool(size)
}

// syncEvaluator runs every evaluation on the calling goroutine
type syncEvaluator struct{}

func (e *syncEvaluator) Map(fn func([]float64) float64, thetas [][]float64) []float64 {
	out := make([]float64, len(thetas))
	for i, theta := range thetas {
		out[i] = fn(theta)
	}
	return out
}

func (e *syncEvaluator) Close() {}

// evalTask is one objective evaluation dispatched to a pool worker
type evalTask struct {
	fn    func([]float64) float64
	theta []float64
	idx   int
	out   []float64
	wg    *sync.WaitGroup
}

// WorkerPool is a fixed-size set of goroutines draining a task channel.
// It holds no state between Map calls.
type WorkerPool struct {
	size      int
	tasks     chan evalTask
	workers   sync.WaitGroup
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// closeTimeout bounds the graceful shutdown before workers are abandoned
const closeTimeout = 30 * time.Second

func newWorkerPool(size int) *WorkerPool {
	p := &WorkerPool{
		size:  size,
		tasks: make(chan evalTask),
	}
	p.workers.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.workers.Done()
	for task := range p.tasks {
		task.out[task.idx] = task.fn(task.theta)
		task.wg.Done()
	}
}

// Size returns the number of pool workers
func (p *WorkerPool) Size() int {
	return p.size
}

// Map dispatches one evaluation per theta and waits for all of them.
// Evaluations may run in any order; results are indexed like the input.
// Calling Map on a closed pool falls back to synchronous evaluation.
func (p *WorkerPool) Map(fn func([]float64) float64, thetas [][]float64) []float64 {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logger.Warn("map on closed worker pool, evaluating synchronously")
		return (&syncEvaluator{}).Map(fn, thetas)
	}
	p.mu.Unlock()

	out := make([]float64, len(thetas))
	var wg sync.WaitGroup
	wg.Add(len(thetas))
	for i, theta := range thetas {
		p.tasks <- evalTask{fn: fn, theta: theta, idx: i, out: out, wg: &wg}
	}
	wg.Wait()
	return out
}

// Close shuts the pool down: graceful drain first, then abandonment if the
// workers do not finish within closeTimeout (a hung external model call
// blocks its worker indefinitely).
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.tasks)

		done := make(chan struct{})
		go func() {
			p.workers.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeTimeout):
			logger.Warn("worker pool close timed out, abandoning workers", "workers", p.size)
		}
	})
}
