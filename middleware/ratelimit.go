package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/sessiongate"
)

// RateLimit charges every request against the engine's general per-IP budget.
// Rejections answer 429; a limiter backend failure answers 503.
func RateLimit(engine *sessiongate.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := engine.AllowRequest(r.Context())
			if err != nil {
				var rle *sessiongate.RateLimitError
				if errors.As(err, &rle) {
					WriteRateLimitHeaders(w, rle.Decision, engine.Now())
					WriteError(w, http.StatusTooManyRequests, "too many requests")
					return
				}
				WriteError(w, http.StatusServiceUnavailable, "rate limiter unavailable")
				return
			}

			WriteRateLimitHeaders(w, d, engine.Now())
			next.ServeHTTP(w, r)
		})
	}
}
