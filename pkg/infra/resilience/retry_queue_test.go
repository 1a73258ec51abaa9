package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

func testPolicy(size int) RetryPolicy {
	return RetryPolicy{
		QueueSize:       size,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
}

func TestRetryQueue_RetriesUntilSuccess(t *testing.T) {
	q := NewRetryQueue(logrus.New(), testPolicy(8))
	q.Start(context.Background(), 1)

	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, q.Enqueue(Job{
		Kind: "alert",
		Key:  "session-1",
		Run: func(ctx context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("store down")
			}
			close(done)
			return nil
		},
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never succeeded")
	}
	q.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryQueue_OutcomeIsPermanent(t *testing.T) {
	q := NewRetryQueue(logrus.New(), testPolicy(8))
	q.Start(context.Background(), 1)

	var calls atomic.Int32
	require.NoError(t, q.Enqueue(Job{
		Kind: "alert",
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return domainErrors.NewValidationError("session_id", "is required")
		},
	}))
	q.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryQueue_FullAndClosed(t *testing.T) {
	q := NewRetryQueue(logrus.New(), testPolicy(1))
	noop := Job{Kind: "audit", Run: func(ctx context.Context) error { return nil }}

	require.NoError(t, q.Enqueue(noop))
	assert.Error(t, q.Enqueue(noop))
	assert.Equal(t, 1, q.Len())

	q.Close()
	assert.ErrorIs(t, q.Enqueue(noop), ErrQueueClosed)
}

func TestRetryQueue_CriticalLaneRunsWhileBulkIsFull(t *testing.T) {
	q := NewRetryQueue(logrus.New(), testPolicy(2))
	q.Start(context.Background(), 1)

	release := make(chan struct{})
	stuck := Job{Kind: "decision_persist", Run: func(ctx context.Context) error {
		<-release
		return nil
	}}
	require.NoError(t, q.Enqueue(stuck))
	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(stuck))
	require.NoError(t, q.Enqueue(stuck))
	assert.ErrorIs(t, q.Enqueue(stuck), ErrQueueFull)

	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, q.Enqueue(Job{
		Kind: "alert_persist",
		Lane: LaneCritical,
		Run: func(ctx context.Context) error {
			if calls.Add(1) < 2 {
				return errors.New("store down")
			}
			close(done)
			return nil
		},
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("critical job waited behind bulk writes")
	}
	close(release)
	q.Close()
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryQueue_CloseDrainsAfterStartContextEnds(t *testing.T) {
	q := NewRetryQueue(logrus.New(), testPolicy(8))
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 1)

	var calls atomic.Int32
	var abandoned atomic.Bool
	require.NoError(t, q.Enqueue(Job{
		Kind: "decision_persist",
		Run: func(ctx context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("store down")
			}
			return nil
		},
		Abandoned: func(error) { abandoned.Store(true) },
	}))
	cancel()
	q.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, abandoned.Load())
}

func TestRetryQueue_DrainTimeoutHandsJobsToAbandoned(t *testing.T) {
	policy := testPolicy(8)
	policy.MaxElapsedTime = time.Hour
	policy.DrainTimeout = 20 * time.Millisecond
	q := NewRetryQueue(logrus.New(), policy)
	q.Start(context.Background(), 1)

	abandoned := make(chan error, 1)
	require.NoError(t, q.Enqueue(Job{
		Kind:      "alert_persist",
		Lane:      LaneCritical,
		Run:       func(ctx context.Context) error { return errors.New("store down") },
		Abandoned: func(err error) { abandoned <- err },
	}))

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close never returned")
	}
	select {
	case err := <-abandoned:
		assert.Error(t, err)
	default:
		t.Fatal("abandoned hook not called")
	}
}

func TestRetryQueue_DroppedAndUnstartedJobsAreAbandoned(t *testing.T) {
	q := NewRetryQueue(logrus.New(), testPolicy(1))
	var reasons []error
	job := Job{
		Kind:      "decision_persist",
		Run:       func(ctx context.Context) error { return nil },
		Abandoned: func(err error) { reasons = append(reasons, err) },
	}

	require.NoError(t, q.Enqueue(job))
	assert.ErrorIs(t, q.Enqueue(job), ErrQueueFull)
	q.Close()

	require.Len(t, reasons, 2)
	assert.ErrorIs(t, reasons[0], ErrQueueFull)
	assert.ErrorIs(t, reasons[1], ErrQueueClosed)
}
