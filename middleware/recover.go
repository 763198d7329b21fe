package middleware

import (
	"net/http"

	"github.com/MrEthical07/sessiongate"
	"github.com/rs/zerolog"
)

// Recover turns a handler panic into a 500 and logs it.
func Recover(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					if rv == http.ErrAbortHandler {
						panic(rv)
					}
					logger.Error().
						Interface("panic", rv).
						Str("path", r.URL.Path).
						Str("request_id", sessiongate.RequestIDFromContext(r.Context())).
						Msg("panic recovered")
					WriteError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
