package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	q := NewQueue("notifications", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "notify"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
}

func TestQueueCallsExhaustedHook(t *testing.T) {
	exhausted := make(chan Job, 1)
	q := NewQueue("notifications", func(ctx context.Context, job Job) error {
		return errors.New("smtp down")
	}, QueueConfig{
		MaxRetries:  1,
		RetryDelay:  10 * time.Millisecond,
		OnExhausted: func(job Job, err error) { exhausted <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "notify"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted hook not called")
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "job"}))
	assert.Equal(t, 0, q.Pending())
}

func TestStopDrainsBufferedJobs(t *testing.T) {
	var handled int32
	release := make(chan struct{})
	q := NewQueue("notifications", func(ctx context.Context, job Job) error {
		<-release
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "notify"}))
	}
	close(release)
	q.Stop()

	assert.Equal(t, int32(5), atomic.LoadInt32(&handled))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "late"}), ErrQueueClosed)
}

func TestStopExhaustsPendingRetries(t *testing.T) {
	var exhausted int32
	q := NewQueue("notifications", func(ctx context.Context, job Job) error {
		return errors.New("inbox unavailable")
	}, QueueConfig{
		MaxRetries:  5,
		RetryDelay:  time.Hour,
		OnExhausted: func(job Job, err error) { atomic.AddInt32(&exhausted, 1) },
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&exhausted))
}

func TestBackoffDoublesUpToCeiling(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{
		RetryDelay:    100 * time.Millisecond,
		MaxRetryDelay: time.Second,
	})
	assert.Equal(t, 100*time.Millisecond, q.backoff(1))
	assert.Equal(t, 200*time.Millisecond, q.backoff(2))
	assert.Equal(t, 800*time.Millisecond, q.backoff(4))
	assert.Equal(t, time.Second, q.backoff(5))
	assert.Equal(t, time.Second, q.backoff(9))
}
