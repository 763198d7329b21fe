package middleware

import (
	"net/http"

	"github.com/MrEthical07/sessiongate"
	"github.com/google/uuid"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID keeps an inbound X-Request-ID or generates one, and stores it in
// the context for audit events and access logs.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(sessiongate.WithRequestID(r.Context(), id)))
		})
	}
}
