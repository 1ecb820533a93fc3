package middleware

import (
	"net/http"
	"strconv"

	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"github.com/customsubash/image-labelling-pipeline/internal/cache"
	"go.uber.org/zap"
)

// RateLimit enforces per-client request limits.
type RateLimit struct {
	limiter cache.Limiter
	logger  *zap.Logger
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(l cache.Limiter, logger *zap.Logger) *RateLimit {
	return &RateLimit{limiter: l, logger: logger}
}

// Limit applies rate limiting keyed by API key prefix or remote IP.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := rl.limiter.Allow(r.Context(), clientID(r))
		if err != nil {
			// Fail open when the counter store is unreachable.
			rl.logger.Warn("Rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
