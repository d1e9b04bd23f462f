package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&processed, 1) == 2 {
			close(done)
		}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "noop"}))
	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "noop"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not processed")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "1"})
	assert.Error(t, err)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return assert.AnError
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueStopAfterStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()

	err := q.Enqueue(Job{ID: "1"})
	assert.Error(t, err)
}
