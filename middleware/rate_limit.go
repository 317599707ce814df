package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// rateLimitWindow is the fixed window shared by every rate-limited route.
const rateLimitWindow = 10 * time.Minute

// Per-window request limits for the write-heavy routes.
const (
	LimitTournamentCreate = 5
	LimitMatchReport      = 30
	LimitNightCreate      = 15
	LimitNightJoin        = 30
	LimitNightEnd         = 10
)

// RateLimiter is satisfied by cache.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time, error)
}

// RateLimit caps how often one user can hit an action within the window.
// Keys are per user; unauthenticated requests fall back to the remote address.
// A limiter outage fails open: throttling is protection, not correctness.
func RateLimit(limiter RateLimiter, logger *slog.Logger, action string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := GetUserIDFromContext(r.Context())
			if err != nil {
				subject = r.RemoteAddr
			}
			key := action + ":" + subject

			allowed, resetAt, err := limiter.Allow(r.Context(), key, limit, rateLimitWindow)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "action", action, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				retryAfter := int(time.Until(resetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded, retry after %d seconds"}`+"\n", retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
