package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Window is the rate-limit accounting period.
const Window = time.Minute

const defaultRequestsPerMinute = 60

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, client string) (Decision, error)
}

// WindowLimiter counts requests per client in fixed one-minute windows held in a Cache.
type WindowLimiter struct {
	cache Cache
	limit int
	now   func() time.Time
}

func NewWindowLimiter(c Cache, requestsPerMin int) *WindowLimiter {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &WindowLimiter{cache: c, limit: requestsPerMin, now: time.Now}
}

func (l *WindowLimiter) Allow(ctx context.Context, client string) (Decision, error) {
	count, err := l.cache.IncrWithExpiry(ctx, RateLimitKey(client), Window)
	if err != nil {
		return Decision{}, err
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     l.now().Add(Window),
	}, nil
}

// LocalLimiter is an in-process token bucket per client, used when no Redis is configured.
type LocalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   int
}

func NewLocalLimiter(requestsPerMin int) *LocalLimiter {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &LocalLimiter{buckets: make(map[string]*rate.Limiter), limit: requestsPerMin}
}

func (l *LocalLimiter) Allow(_ context.Context, client string) (Decision, error) {
	l.mu.Lock()
	b, ok := l.buckets[client]
	if !ok {
		b = rate.NewLimiter(rate.Every(Window/time.Duration(l.limit)), l.limit)
		l.buckets[client] = b
	}
	l.mu.Unlock()

	now := time.Now()
	allowed := b.AllowN(now, 1)
	remaining := int(b.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     now.Add(Window),
	}, nil
}

var (
	_ Limiter = (*WindowLimiter)(nil)
	_ Limiter = (*LocalLimiter)(nil)
)
