package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/ratelimit"
)

// RateLimitMessage is the body message of a rejected request.
const RateLimitMessage = "Too many requests. Please try again later."

// RateLimit rejects requests from a client address once it exceeds the
// limiter's window with 429 and a Retry-After header. Place it after
// chi's RealIP so proxies are accounted for.
//
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return rateLimit(limiter, time.Now)
}

func rateLimit(limiter ratelimit.Limiter, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					slog.String("client", key),
					slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				retry := res.RetryAfter(now())
				w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, RateLimitMessage, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
