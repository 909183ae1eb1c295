package mockhost

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var ErrPoolClosed = errors.New("worker pool is shut down")

// Job is one deferred unit of work. Each submitted Job runs exactly once on
// exactly one worker.
type Job func()

type PoolOption func(*WorkerPool)

func WithPoolLogger(logger log.Logger) PoolOption {
	return func(p *WorkerPool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *WorkerPool) {
		p.metrics = m
	}
}

// WorkerPool runs jobs on a fixed number of goroutines that drain one shared
// FIFO queue. The queue is unbounded: Submit never blocks.
type WorkerPool struct {
	size    int
	logger  log.Logger
	metrics *Metrics

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Job
	closed bool

	wg sync.WaitGroup
}

// NewWorkerPool starts size workers. It panics if size is not positive.
func NewWorkerPool(size int, opts ...PoolOption) *WorkerPool {
	if size <= 0 {
		panic(fmt.Sprintf("mockhost: worker pool size must be positive, got %d", size))
	}

	p := &WorkerPool{
		size:   size,
		logger: log.NewNopLogger(),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(size)
	for id := 0; id < size; id++ {
		go p.work(id)
	}

	return p
}

func (p *WorkerPool) Size() int {
	return p.size
}

// Pending returns the number of jobs not yet picked up by a worker.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Submit enqueues job for the first available worker.
func (p *WorkerPool) Submit(job Job) error {
	if job == nil {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()

	p.metrics.jobQueued()
	p.cond.Signal()
	return nil
}

// Shutdown stops accepting jobs, lets the queued ones finish and waits for
// every worker to exit. Calling it more than once is safe.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

// next blocks until a job is available. It returns false once the pool is
// closed and the queue is empty.
func (p *WorkerPool) next() (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 {
		if p.closed {
			return nil, false
		}
		p.cond.Wait()
	}

	job := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	if len(p.queue) == 0 {
		p.queue = nil
	}
	return job, true
}

func (p *WorkerPool) work(id int) {
	defer p.wg.Done()

	for {
		job, ok := p.next()
		if !ok {
			level.Debug(p.logger).Log("event", "worker shutting down", "worker", id)
			return
		}
		p.metrics.jobStarted()
		p.run(id, job)
	}
}

// run executes a single job. A panic stays inside this call so the worker
// goes back to the queue.
func (p *WorkerPool) run(id int, job Job) {
	panicked := true
	defer func() {
		if panicked {
			r := recover()
			level.Error(p.logger).Log("event", "job panicked", "worker", id,
				"detail", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		p.metrics.jobDone(panicked)
	}()

	job()
	panicked = false
}
