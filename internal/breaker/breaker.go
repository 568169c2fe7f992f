// Package breaker wraps calls to external dependencies (marketplace
// adapters, the FX rate provider) in per-dependency circuit breakers. One
// breaker exists per logical dependency name, created on first use and kept
// for the process lifetime.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the breaker for a dependency rejects the
// call without attempting it. Callers treat it as "skip this source for now".
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings control the shared breaker behavior. All breakers in a registry
// use the same settings.
type Settings struct {
	FailureThreshold uint32        // consecutive failures before tripping OPEN
	RecoveryTimeout  time.Duration // time in OPEN before a HALF_OPEN probe is allowed
	HalfOpenRequests uint32        // consecutive probe successes required to CLOSE
}

// DefaultSettings returns the production defaults: trip after 5 consecutive
// failures, probe after 30s, close after 3 successful probes.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenRequests: 3,
	}
}

// Registry holds one breaker per dependency name.
type Registry struct {
	mu       sync.Mutex
	settings Settings
	breakers map[string]*gobreaker.CircuitBreaker[any]
	logger   *zap.Logger
}

func NewRegistry(settings Settings, logger *zap.Logger) *Registry {
	return &Registry{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		logger:   logger,
	}
}

// GetOrCreate returns the breaker for name, creating it on first use.
func (r *Registry) GetOrCreate(name string) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	settings := r.settings
	logger := r.logger
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("dependency", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	r.breakers[name] = cb
	return cb
}

// State reports the current state of the named breaker. A breaker that has
// never been used is CLOSED.
func (r *Registry) State(name string) gobreaker.State {
	return r.GetOrCreate(name).State()
}

// Execute runs fn through the named breaker. Rejections while OPEN (or while
// the HALF_OPEN probe budget is exhausted) surface as ErrCircuitOpen; any
// other error is the wrapped call's own and counts as a breaker failure.
func (r *Registry) Execute(name string, fn func() (any, error)) (any, error) {
	res, err := r.GetOrCreate(name).Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, ErrCircuitOpen
	}
	return res, err
}

// Do is a typed convenience over Execute.
func Do[T any](r *Registry, name string, fn func() (T, error)) (T, error) {
	res, err := r.Execute(name, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}
