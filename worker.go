package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

const taskQueueSize = 1000

var ErrDispatcherClosed = errors.New("dispatcher is shut down")

// Task is one cart operation run off the caller's goroutine.
type Task func(ctx context.Context) (models.Result, error)

// Future resolves once its task has settled.
type Future struct {
	done   chan struct{}
	result models.Result
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(result models.Result, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Done is closed when the task has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task settles or ctx ends. Giving up on the wait
// does not cancel the task.
func (f *Future) Wait(ctx context.Context) (models.Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return models.Result{}, ctx.Err()
	}
}

// Dispatcher runs tasks on a fixed number of workers.
type Dispatcher struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(size int, logger *zap.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		tasks:  make(chan func(), taskQueueSize),
		logger: logger,
	}

	d.wg.Add(size)
	for i := 0; i < size; i++ {
		go d.worker()
	}

	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.tasks {
		task()
	}
}

// Submit queues task and returns its Future. The task runs detached from
// ctx's cancellation so a request already sent always settles; only
// Future.Wait gives up early. After Shutdown the Future resolves
// immediately with ErrDispatcherClosed.
func (d *Dispatcher) Submit(ctx context.Context, name string, task Task) *Future {
	f := newFuture()
	ctx = context.WithoutCancel(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		f.resolve(models.Result{}, ErrDispatcherClosed)
		return f
	}

	d.tasks <- func() {
		result, err := d.run(ctx, name, task)
		if err != nil {
			d.logger.Error("Failed to run cart task", zap.String("task", name), zap.Error(err))
		}
		f.resolve(result, err)
	}
	return f
}

func (d *Dispatcher) run(ctx context.Context, name string, task Task) (result models.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", name, p)
		}
	}()
	return task(ctx)
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	d.wg.Wait()
}
