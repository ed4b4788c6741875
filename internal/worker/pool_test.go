package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errResult struct{ err error }

func (r errResult) GetError() error { return r.err }

// funcJob adapts a function to Job
type funcJob func(ctx context.Context) error

func (f funcJob) Execute(ctx context.Context) Result { return errResult{err: f(ctx)} }

func noop(context.Context) error { return nil }

func TestNewPool_ClampsWorkers(t *testing.T) {
	for in, want := range map[int]int{5: 5, 0: 1, -3: 1} {
		assert.Equal(t, want, NewPool(context.Background(), in).workers, "workers=%d", in)
	}
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed atomic.Int32
	go func() {
		for range 10 {
			pool.Submit(funcJob(func(context.Context) error {
				executed.Add(1)
				return nil
			}))
		}
		pool.Close()
	}()

	n := 0
	for range pool.Results() {
		n++
	}
	assert.Equal(t, 10, n)
	assert.Equal(t, int32(10), executed.Load())
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var current, peak atomic.Int32
	job := funcJob(func(context.Context) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return nil
	})

	go func() {
		for range 24 {
			pool.Submit(job)
		}
		pool.Close()
	}()
	for range pool.Results() {
	}

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestPool_ErrorsAreResults(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	boom := errors.New("unreadable document")
	pool.Submit(funcJob(func(context.Context) error { return boom }))
	pool.Submit(funcJob(noop))

	results := pool.Wait()
	require.Len(t, results, 2)

	failed := 0
	for _, r := range results {
		if errors.Is(r.GetError(), boom) {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPool_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	cancel()

	// The job may still race into the queue; either way Wait must return
	pool.Submit(funcJob(noop))

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked after parent cancellation")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool)
	go func() {
		accepted := false
		for range 200 {
			if pool.Submit(funcJob(noop)) {
				accepted = true
			}
		}
		done <- accepted
	}()

	select {
	case accepted := <-done:
		assert.False(t, accepted, "no job may be queued on a cancelled pool")
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownInterruptsJobs(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(funcJob(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		for range pool.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not interrupt the running job")
	}
}
