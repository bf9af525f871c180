package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/hexveil/authgate"
)

// RateLimit returns middleware that counts each request against the named
// profile's window, keyed by client IP. Every governed response carries
// X-RateLimit-Limit, X-RateLimit-Remaining, and X-RateLimit-Reset; a request
// over budget is rejected with 429, a Retry-After header, and a structured
// body. When the governor is globally disabled, requests pass untouched and
// no headers are emitted.
func RateLimit(engine *authgate.Engine, profile string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			ctx := authgate.WithClientIP(r.Context(), ip)

			res, err := engine.RateLimit(ctx, ip, profile)
			if err != nil {
				writeError(w, err)
				return
			}

			if res.Limit > 0 {
				resetSeconds := int(math.Ceil(res.ResetAfter.Seconds()))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

				if !res.Allowed {
					if resetSeconds < 1 {
						resetSeconds = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(resetSeconds))
					writeJSON(w, http.StatusTooManyRequests, errorBody{
						Error:             authgate.KindRateLimited.String(),
						RetryAfterSeconds: int64(resetSeconds),
					})
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
