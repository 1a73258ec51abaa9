package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

type CircuitBreaker interface {
	Execute(fn func() error) error
}

type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	// Passthrough errors are outcomes, not outages: they are returned as is
	// and do not count against the breaker.
	Passthrough func(err error) bool
}

type circuitBreakerWrapper struct {
	breaker *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(s BreakerSettings) CircuitBreaker {
	passthrough := s.Passthrough
	if passthrough == nil {
		passthrough = IsOutcome
	}
	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || passthrough(err)
		},
	}
	return &circuitBreakerWrapper{
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (g *circuitBreakerWrapper) Execute(fn func() error) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("breaker (%s): %w", g.breaker.Name(), err)
		}
		return err
	}
	return nil
}

// IsOutcome reports whether err is a domain answer rather than a storage
// failure.
func IsOutcome(err error) bool {
	return errors.Is(err, domainErrors.ErrNotFound) ||
		errors.Is(err, domainErrors.ErrValidation) ||
		errors.Is(err, domainErrors.ErrPolicyConflict)
}

// Guard bounds every store call with a timeout and a circuit breaker and
// reports outages as StoreUnavailableError.
type Guard struct {
	breaker     CircuitBreaker
	timeout     time.Duration
	passthrough func(err error) bool
}

func NewGuard(s BreakerSettings, timeout time.Duration) *Guard {
	if s.Passthrough == nil {
		s.Passthrough = IsOutcome
	}
	return &Guard{
		breaker:     NewCircuitBreaker(s),
		timeout:     timeout,
		passthrough: s.Passthrough,
	}
}

func (g *Guard) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := g.breaker.Execute(func() error {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})
	if err == nil || g.passthrough(err) {
		return err
	}
	return domainErrors.NewStoreUnavailableError(op, err)
}
