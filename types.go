package sessiongate

import (
	"time"

	"github.com/MrEthical07/sessiongate/token"
)

// IssuedToken is returned by [Engine.Issue].
type IssuedToken struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionRecord is the server-side state of a live token, as returned by
// [Engine.Validate].
type SessionRecord = token.Record
