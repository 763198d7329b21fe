package httpapi

import (
	"context"
	"net/http"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/middleware"
	"github.com/rs/zerolog"
)

// Options configures [NewRouter].
type Options struct {
	Logger zerolog.Logger
	// API serves everything under /api/ once the request passed the general
	// limiter and the session gate. Nil answers 404.
	API http.Handler
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
	// Ready backs /healthz. Nil always reports ok.
	Ready func(ctx context.Context) error
}

// NewRouter wires the session endpoints, the protected tree and the ambient
// middleware (recover, request ID, client IP, access log).
func NewRouter(engine *sessiongate.Engine, opts Options) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.Handler) http.Handler {
		return middleware.Chain(h, middleware.RateLimit(engine), middleware.Guard(engine))
	}

	mux.Handle("POST /session/token", IssueHandler(engine, opts.Logger))
	mux.Handle("DELETE /session/token", protect(RevokeHandler(engine, opts.Logger)))
	mux.Handle("GET /healthz", healthHandler(opts.Ready))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	api := opts.API
	if api == nil {
		api = http.NotFoundHandler()
	}
	mux.Handle("/api/", protect(api))

	sec := engine.Config().Security
	return middleware.Chain(mux,
		middleware.Recover(opts.Logger),
		middleware.RequestID(),
		middleware.ClientIP(sec.TrustProxyHeaders, sec.ProxyHeader),
		middleware.AccessLog(opts.Logger),
	)
}

func healthHandler(ready func(ctx context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
