package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

func testSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:             name,
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	breaker := NewCircuitBreaker(testSettings("open-test"))
	boom := errors.New("connection refused")

	assert.Equal(t, boom, breaker.Execute(func() error { return boom }))
	assert.Equal(t, boom, breaker.Execute(func() error { return boom }))

	called := false
	err := breaker.Execute(func() error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestCircuitBreaker_OutcomesDoNotTrip(t *testing.T) {
	breaker := NewCircuitBreaker(testSettings("outcome-test"))
	notFound := domainErrors.NewNotFoundError("alert", uuid.New())

	for i := 0; i < 5; i++ {
		assert.Equal(t, notFound, breaker.Execute(func() error { return notFound }))
	}
	assert.NoError(t, breaker.Execute(func() error { return nil }))
}

func TestGuard_WrapsOutages(t *testing.T) {
	guard := NewGuard(testSettings("guard-test"), 20*time.Millisecond)

	err := guard.Run(context.Background(), "save decision", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var sue *domainErrors.StoreUnavailableError
	assert.True(t, errors.As(err, &sue))
	assert.Equal(t, "save decision", sue.Op)
}

func TestGuard_PassesOutcomesThrough(t *testing.T) {
	guard := NewGuard(testSettings("guard-outcome"), time.Second)
	conflict := domainErrors.NewPolicyConflictError("alert", "resolved", "claim")

	err := guard.Run(context.Background(), "claim", func(ctx context.Context) error { return conflict })
	assert.Same(t, conflict, err)
	assert.False(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
}

func TestGuard_CustomPassthrough(t *testing.T) {
	stale := errors.New("stale")
	s := testSettings("guard-custom")
	s.Passthrough = func(err error) bool { return errors.Is(err, stale) || IsOutcome(err) }
	guard := NewGuard(s, time.Second)

	for i := 0; i < 3; i++ {
		err := guard.Run(context.Background(), "update", func(ctx context.Context) error { return stale })
		assert.Equal(t, stale, err)
	}
}
