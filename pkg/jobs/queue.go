package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue once Stop has been called.
var ErrQueueClosed = errors.New("queue closed")

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ExhaustedFunc is invoked once a job has failed more than MaxRetries times.
type ExhaustedFunc func(Job, error)

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is the first backoff; it doubles on every attempt up to
	// MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Logger        *zap.Logger
	OnExhausted   ExhaustedFunc
}

// Queue dispatches jobs to a fixed pool of goroutines. Stop drains the
// buffered jobs before returning; retries still waiting on their backoff
// are handed to OnExhausted.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewQueue builds a queue; Start must be called before Enqueue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = 30 * cfg.RetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, waits for the buffered ones to finish and then
// cancels pending retries.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.workers.Wait()
	q.cancel()
	q.retries.Wait()
	q.logger.Info("queue stopped")
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Pending reports how many jobs are buffered and not yet picked up.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Enqueue pushes a job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.closed {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	q.jobs <- job
	return nil
}

func (q *Queue) work() {
	defer q.workers.Done()
	for job := range q.jobs {
		if err := q.handler(q.ctx, job); err != nil {
			q.fail(job, err)
		}
	}
}

// backoff returns the wait before the given retry attempt (1-based).
func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt && delay < q.cfg.MaxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, q.cfg.MaxRetryDelay)
}

func (q *Queue) fail(job Job, err error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Error("job exceeded retries", fields...)
		q.exhaust(job, err)
		return
	}
	delay := q.backoff(job.Attempt)
	q.logger.Warn("job failed, retrying", append(fields, zap.Duration("backoff", delay))...)

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.exhaust(job, fmt.Errorf("queue stopped before retry: %w", err))
		case <-timer.C:
			if enqueueErr := q.Enqueue(job); enqueueErr != nil {
				q.exhaust(job, enqueueErr)
			}
		}
	}()
}

func (q *Queue) exhaust(job Job, err error) {
	if q.cfg.OnExhausted != nil {
		q.cfg.OnExhausted(job, err)
	}
}
