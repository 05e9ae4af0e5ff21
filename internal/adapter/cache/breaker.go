package cache

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	domain "traced-user-service/internal/domain/user"
)

// BreakerConfig controls when the cache circuit opens.
type BreakerConfig struct {
	// ConsecutiveFailures trips the circuit. Zero means 5.
	ConsecutiveFailures uint32
	// Timeout is how long the circuit stays open before probing. Zero means 10s.
	Timeout time.Duration
}

// BreakerUserCache short-circuits calls to a failing cache so that reads
// fall through to the database without waiting on Redis timeouts.
type BreakerUserCache struct {
	next UserCache
	cb   *gobreaker.CircuitBreaker[*domain.User]
}

var _ UserCache = (*BreakerUserCache)(nil)

// NewBreakerUserCache wraps next with a local circuit breaker.
func NewBreakerUserCache(next UserCache, cfg BreakerConfig, log *zap.Logger) *BreakerUserCache {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*domain.User](gobreaker.Settings{
		Name:        "user_cache",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerUserCache{next: next, cb: cb}
}

// Get returns gobreaker.ErrOpenState while the circuit is open.
func (b *BreakerUserCache) Get(ctx context.Context, id int64) (*domain.User, error) {
	return b.cb.Execute(func() (*domain.User, error) {
		return b.next.Get(ctx, id)
	})
}

// Set is skipped with gobreaker.ErrOpenState while the circuit is open.
func (b *BreakerUserCache) Set(ctx context.Context, user *domain.User) error {
	_, err := b.cb.Execute(func() (*domain.User, error) {
		return nil, b.next.Set(ctx, user)
	})
	return err
}

// State reports the current circuit state.
func (b *BreakerUserCache) State() gobreaker.State {
	return b.cb.State()
}
