package provider

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Guard wraps outbound provider calls in per-provider circuit breakers
// so a flapping provider fails fast instead of holding the user-facing
// checkout path for the full timeout on every request.
type Guard struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	settings gobreaker.Settings
}

// GuardConfig holds circuit breaker configuration.
type GuardConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultGuardConfig returns the default guard configuration.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// NewGuard creates a new Guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &Guard{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		settings: gobreaker.Settings{
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			},
		},
	}
}

// Do runs fn under the breaker for the named provider. An open breaker
// returns gobreaker.ErrOpenState without invoking fn.
func (g *Guard) Do(providerName string, fn func() (any, error)) (any, error) {
	return g.breaker(providerName).Execute(fn)
}

func (g *Guard) breaker(name string) *gobreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[name]
	if !ok {
		settings := g.settings
		settings.Name = name
		cb = gobreaker.NewCircuitBreaker[any](settings)
		g.breakers[name] = cb
	}
	return cb
}
