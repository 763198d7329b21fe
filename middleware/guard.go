package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/sessiongate"
)

type recordContextKey struct{}

// RecordFromContext returns the session record stored by [Guard].
func RecordFromContext(ctx context.Context) (*sessiongate.SessionRecord, bool) {
	rec, ok := ctx.Value(recordContextKey{}).(*sessiongate.SessionRecord)
	return rec, ok
}

// TokenFromRequest returns the session token carried by r: the configured
// header when present, otherwise the verified session cookie when cookies
// are enabled. An absent token yields sessiongate.ErrTokenMissing.
func TokenFromRequest(engine *sessiongate.Engine, r *http.Request) (string, error) {
	if tok := r.Header.Get(engine.HeaderName()); tok != "" {
		return tok, nil
	}
	if !engine.CookiesEnabled() {
		return "", sessiongate.ErrTokenMissing
	}
	c, err := r.Cookie(engine.CookieName())
	if err != nil || c.Value == "" {
		return "", sessiongate.ErrTokenMissing
	}
	return engine.TokenFromCookie(r.Context(), c.Value)
}

// Guard rejects requests without a live session token with 401 and a JSON
// error naming the reason. Admitted requests carry the record in their
// context.
func Guard(engine *sessiongate.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			tok, err := TokenFromRequest(engine, r)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, unauthorizedMessage(err))
				return
			}

			rec, err := engine.Validate(r.Context(), tok)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, unauthorizedMessage(err))
				return
			}

			ctx := context.WithValue(r.Context(), recordContextKey{}, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, sessiongate.ErrTokenMissing):
		return sessiongate.ErrTokenMissing.Error()
	case errors.Is(err, sessiongate.ErrTokenExpired):
		return sessiongate.ErrTokenExpired.Error()
	case errors.Is(err, sessiongate.ErrTokenInvalid):
		return sessiongate.ErrTokenInvalid.Error()
	default:
		return "unauthorized"
	}
}
