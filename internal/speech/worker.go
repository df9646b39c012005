// Package speech owns the host speech engine. A single worker goroutine
// holds the engine and runs jobs one at a time, so engine-wide settings
// applied by one job can never leak into another.
package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/observability"
)

const defaultQueueSize = 16

type engineFunc = func(ctx context.Context, engine domain.SpeechEngine) error

type job struct {
	ctx  context.Context
	fn   engineFunc
	done chan error
}

// Worker implements domain.EngineExecutor.
type Worker struct {
	factory domain.EngineFactory
	engine  domain.SpeechEngine // touched only by run

	jobs     chan job
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWorker starts a worker. The engine is created by factory on the first job.
func NewWorker(factory domain.EngineFactory, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	w := &Worker{
		factory: factory,
		engine:  nil,
		jobs:    make(chan job, queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go w.run()

	return w
}

// Do queues fn and waits for it to run with exclusive access to the engine.
func (w *Worker) Do(ctx context.Context, fn engineFunc) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case <-w.quit:
		return domain.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case w.jobs <- j:
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stopped:
		// run answers every job it dequeued before closing stopped.
		select {
		case err := <-j.done:
			return err
		default:
			return domain.ErrQueueClosed
		}
	}
}

// Stop ends the worker after the job in progress. Queued jobs fail with ErrQueueClosed.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	<-w.stopped
}

func (w *Worker) run() {
	defer close(w.stopped)

	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			j.done <- w.execute(j)
		}
	}
}

func (w *Worker) execute(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	if w.engine == nil {
		engine, err := w.factory(j.ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
		}
		w.engine = engine
		observability.FromContext(j.ctx).Info("speech engine initialized")
	}

	return j.fn(j.ctx, w.engine)
}
