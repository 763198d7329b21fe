package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const sessionTokenRawSize = 32

// SessionTokenLen is the encoded length of a token from NewSessionToken.
var SessionTokenLen = base64.RawURLEncoding.EncodedLen(sessionTokenRawSize)

// NewSessionToken returns 32 bytes from crypto/rand, base64url without padding.
func NewSessionToken() (string, error) {
	var raw [sessionTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, header and cookie safe
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// WellFormedSessionToken reports whether tok could have come from
// NewSessionToken. It never proves the token was issued.
func WellFormedSessionToken(tok string) bool {
	if len(tok) != SessionTokenLen {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Fingerprint returns a short, non-reversible identifier for tok that is safe
// to log.
func Fingerprint(tok string) string {
	if tok == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:6])
}
