// Package pool provides a fixed-size worker pool for controlled concurrency.
// One pool is shared by every in-flight ingestion so the fan-out to the
// embedding service stays bounded no matter how many requests are active.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrPoolClosed = errors.New("pool is closed")

// Task represents a unit of work.
type Task func(ctx context.Context) error

type job struct {
	ctx    context.Context
	task   Task
	result chan error
}

// Pool runs submitted tasks on a fixed number of worker goroutines.
type Pool struct {
	tasks  chan job
	quit   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New starts a pool with the given number of workers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 4
	}
	p := &Pool{tasks: make(chan job), quit: make(chan struct{})}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.tasks:
			if err := j.ctx.Err(); err != nil {
				j.result <- err
				continue
			}
			j.result <- j.task(j.ctx)
		case <-p.quit:
			return
		}
	}
}

// SubmitWait blocks until a worker has run the task, and returns the task's
// error. It gives up early if ctx is done before a worker picks the task up,
// and returns ErrPoolClosed if the pool shuts down first.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	j := job{ctx: ctx, task: task, result: make(chan error, 1)}
	select {
	case p.tasks <- j:
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for in-flight tasks to finish. It is
// safe to call concurrently with SubmitWait; submitters that have not been
// picked up by a worker get ErrPoolClosed.
func (p *Pool) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.quit)
		p.wg.Wait()
	}
}
