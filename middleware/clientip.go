package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessiongate"
)

// ClientIP resolves the caller's IP and stores it in the context, where the
// engine picks it up as the rate limiting key.
//
// With trustProxy set, the first address in proxyHeader wins; otherwise
// only the connection's remote address is used.
func ClientIP(trustProxy bool, proxyHeader string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r)
			if trustProxy && proxyHeader != "" {
				if fwd := forwardedIP(r.Header.Get(proxyHeader)); fwd != "" {
					ip = fwd
				}
			}
			next.ServeHTTP(w, r.WithContext(sessiongate.WithClientIP(r.Context(), ip)))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedIP(v string) string {
	if v == "" {
		return ""
	}
	first := strings.TrimSpace(strings.Split(v, ",")[0])
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}
