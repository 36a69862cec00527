package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the pool cannot accept another task
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrPoolStopped is returned for tasks submitted after Stop
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task is a unit of background work. The context carries the pool's run
// timeout only; it is not cancelled when the pool stops.
type Task func(ctx context.Context)

type queuedTask struct {
	name string
	run  Task
}

// WorkerPool runs tasks on a fixed number of goroutines fed by a bounded queue
type WorkerPool struct {
	workers    int
	runTimeout time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	stopped bool
	queue   chan queuedTask
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWorkerPool creates a pool; call Start before submitting
func NewWorkerPool(workers, queueSize int, runTimeout time.Duration, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &WorkerPool{
		workers:    workers,
		runTimeout: runTimeout,
		logger:     logger,
		queue:      make(chan queuedTask, queueSize),
	}
}

// Start launches the workers. Further calls are no-ops.
func (p *WorkerPool) Start() {
	p.once.Do(func() {
		p.logger.Info("starting worker pool",
			zap.Int("workers", p.workers),
			zap.Int("queue_size", cap(p.queue)))
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.work(i)
		}
	})
}

// Submit queues a task without blocking
func (p *WorkerPool) Submit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- queuedTask{name: name, run: task}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued tasks not yet picked up
func (p *WorkerPool) Pending() int {
	return len(p.queue)
}

// Stop refuses new tasks and waits until queued and running tasks finish or
// ctx is done
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool did not drain: %w", ctx.Err())
	}
}

func (p *WorkerPool) work(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(id, task)
	}
}

func (p *WorkerPool) run(id int, task queuedTask) {
	ctx := context.Background()
	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				zap.String("task", task.name),
				zap.Int("worker", id),
				zap.Any("panic", r))
		}
	}()

	task.run(ctx)
	p.logger.Debug("background task finished",
		zap.String("task", task.name),
		zap.Int("worker", id),
		zap.Duration("duration", time.Since(start)))
}
