package sessiongate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config defines a public type used by sessiongate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Field tags name the keys accepted by [LoadConfig].
type Config struct {
	Token     TokenConfig     `koanf:"token"`
	Store     StoreConfig     `koanf:"store"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Cookie    CookieConfig    `koanf:"cookie"`
	Audit     AuditConfig     `koanf:"audit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Security  SecurityConfig  `koanf:"security"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls issued token lifetime and the request header that carries it.
type TokenConfig struct {
	Lifetime   time.Duration `koanf:"lifetime"`
	HeaderName string        `koanf:"header"`
	// RejectMalformed answers malformed tokens as invalid without a store lookup.
	RejectMalformed  bool `koanf:"rejectmalformed"`
	MaxIssueAttempts int  `koanf:"maxissueattempts"`
}

/*
====================================
STORE CONFIG
====================================
*/

// Store backends accepted by StoreConfig.Backend.
const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
	StoreBackendBadger = "badger"
)

// StoreConfig selects and tunes the token store backend.
type StoreConfig struct {
	Backend       string        `koanf:"backend"`
	RedisPrefix   string        `koanf:"redisprefix"`
	EvictionGrace time.Duration `koanf:"evictiongrace"`
	SweepInterval time.Duration `koanf:"sweepinterval"`

	BadgerDir        string        `koanf:"badgerdir"`
	BadgerInMemory   bool          `koanf:"badgerinmemory"`
	BadgerGCInterval time.Duration `koanf:"badgergcinterval"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// WindowConfig is a fixed-window budget. A zero Limit disables the limiter.
type WindowConfig struct {
	Limit  int           `koanf:"limit"`
	Period time.Duration `koanf:"period"`
}

// RateLimitConfig defines the two independent per-IP limiters.
type RateLimitConfig struct {
	// Backend is "redis" or "memory". Empty follows Store.Backend: redis
	// when the store is redis, memory otherwise.
	Backend     string       `koanf:"backend"`
	RedisPrefix string       `koanf:"redisprefix"`
	General     WindowConfig `koanf:"general"`
	Issuance    WindowConfig `koanf:"issuance"`
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig enables the signed-cookie transport. The header stays canonical;
// the cookie is consulted only when the header is absent.
type CookieConfig struct {
	Enabled bool   `koanf:"enabled"`
	Name    string `koanf:"name"`
	Path    string `koanf:"path"`
	Domain  string `koanf:"domain"`
	Secure  bool   `koanf:"secure"`
	// SameSite is "lax", "strict" or "none".
	SameSite string `koanf:"samesite"`
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string `koanf:"signingmethod"`
	// Secret is the HMAC key for hs256, or a base64 32-byte seed for ed25519.
	Secret string `koanf:"secret"`
	Issuer string `koanf:"issuer"`
}

// AuditConfig defines a public type used by sessiongate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffersize"`
	DropIfFull bool `koanf:"dropiffull"`
}

// MetricsConfig defines a public type used by sessiongate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"latencyhistograms"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment posture switches.
type SecurityConfig struct {
	ProductionMode bool `koanf:"productionmode"`
	// TrustProxyHeaders lets the client IP come from ProxyHeader. Enable only
	// behind a proxy that overwrites the header.
	TrustProxyHeaders bool   `koanf:"trustproxyheaders"`
	ProxyHeader       string `koanf:"proxyheader"`
}

// DefaultConfig returns the baseline configuration: 10 minute tokens,
// 300 requests per 15 minutes per IP, 5 issuances per minute per IP.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Lifetime:         10 * time.Minute,
			HeaderName:       "x-session-token",
			RejectMalformed:  true,
			MaxIssueAttempts: 3,
		},
		Store: StoreConfig{
			Backend:          StoreBackendRedis,
			RedisPrefix:      "st",
			EvictionGrace:    time.Minute,
			SweepInterval:    time.Minute,
			BadgerGCInterval: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RedisPrefix: "rl",
			General: WindowConfig{
				Limit:  300,
				Period: 15 * time.Minute,
			},
			Issuance: WindowConfig{
				Limit:  5,
				Period: time.Minute,
			},
		},
		Cookie: CookieConfig{
			Enabled:       false,
			Name:          "sg_session",
			Path:          "/",
			Secure:        true,
			SameSite:      "lax",
			SigningMethod: "hs256",
			Issuer:        "sessiongate",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProxyHeader: "X-Forwarded-For",
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation fails.
// Validate does not mutate shared global state and can be used concurrently.
func (c *Config) Validate() error {
	// Token
	if c.Token.Lifetime <= 0 {
		return errors.New("Token Lifetime must be > 0")
	}
	if strings.TrimSpace(c.Token.HeaderName) == "" {
		return errors.New("Token HeaderName must be set")
	}
	if c.Token.MaxIssueAttempts < 0 {
		return errors.New("Token MaxIssueAttempts must be >= 0")
	}

	// Store
	switch c.Store.Backend {
	case StoreBackendRedis:
		if c.Store.RedisPrefix == "" {
			return errors.New("Store RedisPrefix must be set for redis backend")
		}
	case StoreBackendMemory:
		if c.Store.SweepInterval <= 0 {
			return errors.New("Store SweepInterval must be > 0 for memory backend")
		}
	case StoreBackendBadger:
		if c.Store.BadgerDir == "" && !c.Store.BadgerInMemory {
			return errors.New("Store BadgerDir must be set unless BadgerInMemory is true")
		}
	default:
		return fmt.Errorf("unsupported Store Backend %q", c.Store.Backend)
	}
	if c.Store.EvictionGrace < 0 {
		return errors.New("Store EvictionGrace must be >= 0")
	}

	// Rate limits
	switch c.RateLimit.Backend {
	case "", StoreBackendRedis, StoreBackendMemory:
	default:
		return fmt.Errorf("unsupported RateLimit Backend %q", c.RateLimit.Backend)
	}
	if err := c.RateLimit.General.validate("General"); err != nil {
		return err
	}
	if err := c.RateLimit.Issuance.validate("Issuance"); err != nil {
		return err
	}

	// Cookie
	if c.Cookie.Enabled {
		if c.Cookie.Name == "" {
			return errors.New("Cookie Name must be set when cookies are enabled")
		}
		if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
			return err
		}
		if strings.EqualFold(c.Cookie.SameSite, "none") && !c.Cookie.Secure {
			return errors.New("Cookie SameSite=none requires Secure")
		}
		switch c.Cookie.SigningMethod {
		case "hs256":
			if len(c.Cookie.Secret) < 32 {
				return errors.New("Cookie hs256 Secret must be at least 32 bytes")
			}
		case "ed25519":
			seed, err := base64.StdEncoding.DecodeString(c.Cookie.Secret)
			if err != nil || len(seed) != 32 {
				return errors.New("Cookie ed25519 Secret must be a base64 32-byte seed")
			}
		default:
			return errors.New("unsupported Cookie SigningMethod")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.TrustProxyHeaders && strings.TrimSpace(c.Security.ProxyHeader) == "" {
		return errors.New("Security ProxyHeader must be set when TrustProxyHeaders is true")
	}
	if c.Security.ProductionMode {
		if c.Store.Backend == StoreBackendMemory {
			return errors.New("ProductionMode forbids the memory store backend")
		}
		if !c.RateLimit.Issuance.enabled() {
			return errors.New("ProductionMode requires an issuance rate limit")
		}
		if c.Cookie.Enabled && !c.Cookie.Secure {
			return errors.New("ProductionMode requires Secure cookies")
		}
	}

	return nil
}

func (w WindowConfig) enabled() bool {
	return w.Limit > 0
}

func (w WindowConfig) validate(name string) error {
	if w.Limit < 0 {
		return fmt.Errorf("RateLimit %s Limit must be >= 0", name)
	}
	if w.Limit > 0 && w.Period <= 0 {
		return fmt.Errorf("RateLimit %s Period must be > 0 when Limit is set", name)
	}
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unsupported Cookie SameSite %q", v)
	}
}

// rateLimitBackend resolves the effective limiter backend.
func (c *Config) rateLimitBackend() string {
	if c.RateLimit.Backend != "" {
		return c.RateLimit.Backend
	}
	if c.Store.Backend == StoreBackendRedis {
		return StoreBackendRedis
	}
	return StoreBackendMemory
}
