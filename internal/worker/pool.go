package worker

import (
	"context"
	"sync"
)

// Job is one unit of work, typically one document
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produced
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. Results arrive in
// completion order, not submission order.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc

	running   sync.WaitGroup
	closeJobs sync.Once
	closeOut  sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers
// after their current job. workers < 1 means one worker.
func NewPool(ctx context.Context, workers int) *Pool {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.running.Add(p.workers)
	for range p.workers {
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.running.Done()
	for {
		var job Job
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			job = j
		}

		res := job.Execute(p.ctx)

		select {
		case p.results <- res:
		case <-p.ctx.Done():
			return
		}
	}
}

// Submit queues a job. It reports false when the pool has been cancelled.
func (p *Pool) Submit(job Job) bool {
	// a select with both cases ready picks at random
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Results is closed once every worker has exited
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs; the result stream closes after the queue drains.
// No Submit may follow Close.
func (p *Pool) Close() {
	p.closeJobs.Do(func() { close(p.jobs) })
	go func() {
		p.running.Wait()
		p.finish()
	}()
}

// Wait closes the pool and collects every remaining result
func (p *Pool) Wait() []Result {
	p.Close()
	var out []Result
	for res := range p.results {
		out = append(out, res)
	}
	return out
}

// Shutdown cancels in-flight work and blocks until the workers exit
func (p *Pool) Shutdown() {
	p.cancel()
	p.running.Wait()
	p.finish()
}

func (p *Pool) finish() {
	p.closeOut.Do(func() {
		close(p.results)
		p.cancel()
	})
}
