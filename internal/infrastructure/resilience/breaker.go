// Package resilience wraps dependency calls in circuit breakers.
package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"upiguard/internal/metrics"
	"upiguard/pkg/logger"
)

// ErrCircuitOpen is returned while a breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a Breaker
type Settings struct {
	Name string
	// Timeout is how long the breaker stays open before probing again
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// Breaker guards calls to one dependency
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker that trips once MinRequests calls have been
// seen and the failure ratio reaches FailureRatio.
func NewBreaker(st Settings, log *logger.Logger) *Breaker {
	if st.FailureRatio <= 0 {
		st.FailureRatio = 0.5
	}
	if st.MinRequests == 0 {
		st.MinRequests = 5
	}
	if st.Timeout <= 0 {
		st.Timeout = 30 * time.Second
	}
	log = log.WithComponent("breaker")

	metrics.BreakerState.WithLabelValues(st.Name).Set(float64(gobreaker.StateClosed))

	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    st.Name,
		Timeout: st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= st.MinRequests && ratio >= st.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("name", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})}
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	if b == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}

// Execute runs fn through the breaker. A nil breaker calls fn directly.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}

	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrCircuitOpen
		}
		return zero, err
	}

	return res.(T), nil
}
