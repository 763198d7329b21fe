package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/middleware"
	"github.com/rs/zerolog"
)

// IssueHandler answers POST /session/token with {"token","expiresAt"}.
// Issuance rejections answer 429 with rate limit headers; any other failure
// answers 500 and no token.
func IssueHandler(engine *sessiongate.Engine, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued, err := engine.Issue(r.Context())
		if err != nil {
			var rle *sessiongate.RateLimitError
			if errors.As(err, &rle) {
				middleware.WriteRateLimitHeaders(w, rle.Decision, engine.Now())
				middleware.WriteError(w, http.StatusTooManyRequests, "too many token requests")
				return
			}
			logger.Error().Err(err).
				Str("request_id", sessiongate.RequestIDFromContext(r.Context())).
				Msg("session token issuance failed")
			middleware.WriteError(w, http.StatusInternalServerError, "could not issue session token")
			return
		}

		if engine.CookiesEnabled() {
			cookie, err := engine.SessionCookie(issued)
			if err != nil {
				logger.Error().Err(err).Msg("session cookie signing failed")
				middleware.WriteError(w, http.StatusInternalServerError, "could not issue session token")
				return
			}
			http.SetCookie(w, cookie)
		}

		middleware.WriteJSON(w, http.StatusOK, issued)
	})
}

// RevokeHandler deletes the token admitted by the Guard in front of it and
// clears the session cookie.
func RevokeHandler(engine *sessiongate.Engine, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := middleware.RecordFromContext(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := engine.Revoke(r.Context(), rec.Token); err != nil {
			logger.Error().Err(err).Msg("session token revocation failed")
			middleware.WriteError(w, http.StatusInternalServerError, "could not revoke session token")
			return
		}

		if engine.CookiesEnabled() {
			http.SetCookie(w, engine.ExpiredSessionCookie())
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// EchoHandler reports the caller's session expiry. The server binary mounts
// it at /api/echo as a minimal protected resource.
func EchoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ := middleware.RecordFromContext(r.Context())
		body := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
		}
		if rec != nil {
			body["expiresAt"] = rec.ExpiresAt
		}
		middleware.WriteJSON(w, http.StatusOK, body)
	})
}
