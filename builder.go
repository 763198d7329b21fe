package sessiongate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessiongate/internal"
	internalaudit "github.com/MrEthical07/sessiongate/internal/audit"
	"github.com/MrEthical07/sessiongate/internal/flows"
	"github.com/MrEthical07/sessiongate/internal/rate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/MrEthical07/sessiongate/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by sessiongate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  token.Store

	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the client used by the redis token store and the redis
// rate limiter backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore overrides Store.Backend with a caller-owned store. The engine
// does not close it.
func (b *Builder) WithStore(store token.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for backend anomalies.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for expiry decisions, rate windows, cookie
// checks and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the store, limiters, cookie codec,
// audit and metrics, and starts background maintenance for embedded stores.
//
// Build may return an error when input validation or backend setup fails.
// A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config: cfg,
		logger: b.logger,
		now:    now,
	}

	// -------- TOKEN STORE --------
	if err := b.buildStore(engine, cfg); err != nil {
		return nil, err
	}

	// -------- RATE LIMITERS --------
	var backend rate.Backend
	switch cfg.rateLimitBackend() {
	case StoreBackendRedis:
		if b.redis == nil {
			_ = engine.Close()
			return nil, errors.New("redis client required for redis rate limiter")
		}
		backend = rate.NewRedisBackend(b.redis)
	default:
		backend = rate.NewMemoryBackend(now)
	}
	prefix := strings.TrimSuffix(cfg.RateLimit.RedisPrefix, ":")
	engine.generalLimiter = rate.New(backend, prefix+":g:", rate.Window{
		Limit:  cfg.RateLimit.General.Limit,
		Period: cfg.RateLimit.General.Period,
	}).WithClock(now)
	engine.issueLimiter = rate.New(backend, prefix+":i:", rate.Window{
		Limit:  cfg.RateLimit.Issuance.Limit,
		Period: cfg.RateLimit.Issuance.Period,
	}).WithClock(now)

	// -------- COOKIES --------
	if cfg.Cookie.Enabled {
		cm, err := newCookieManager(cfg.Cookie, now)
		if err != nil {
			_ = engine.Close()
			return nil, err
		}
		sameSite, err := parseSameSite(cfg.Cookie.SameSite)
		if err != nil {
			_ = engine.Close()
			return nil, err
		}
		engine.cookies = cm
		engine.sameSite = sameSite
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	wellFormed := internal.WellFormedSessionToken
	if !cfg.Token.RejectMalformed {
		wellFormed = nil
	}
	engine.flows = flows.New(flows.Deps{
		Issue: flows.IssueDeps{
			Limiter:       engine.issueLimiter,
			GenerateToken: internal.NewSessionToken,
			Now:           now,
			Lifetime:      cfg.Token.Lifetime,
			Store:         engine.store,
			MaxAttempts:   cfg.Token.MaxIssueAttempts,
		},
		Validate: flows.ValidateDeps{
			Now:        now,
			Store:      engine.store,
			WellFormed: wellFormed,
		},
		Revoke: flows.RevokeDeps{
			Store: engine.store,
		},
	})

	b.built = true

	return engine, nil
}

func (b *Builder) buildStore(engine *Engine, cfg Config) error {
	if b.store != nil {
		engine.store = b.store
		engine.customStore = true
		return nil
	}

	switch cfg.Store.Backend {
	case StoreBackendRedis:
		if b.redis == nil {
			return errors.New("redis client required")
		}
		engine.store = token.NewRedisStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.EvictionGrace)

	case StoreBackendMemory:
		ms := token.NewMemoryStore(cfg.Store.EvictionGrace)
		ms.SetClock(engine.now)
		engine.store = ms
		interval := cfg.Store.SweepInterval
		engine.startBackground(func(ctx context.Context) {
			ms.Run(ctx, interval, func(n int) {
				if n > 0 {
					engine.logger.Debug().Int("evicted", n).Msg("memory token store sweep")
				}
			})
		})

	case StoreBackendBadger:
		bs, err := token.OpenBadgerStore(token.BadgerOptions{
			Dir:       cfg.Store.BadgerDir,
			InMemory:  cfg.Store.BadgerInMemory,
			KeyPrefix: cfg.Store.RedisPrefix,
			Grace:     cfg.Store.EvictionGrace,
			Logger:    engine.logger,
		})
		if err != nil {
			return fmt.Errorf("open badger store: %w", err)
		}
		engine.store = bs
		engine.closers = append(engine.closers, bs.Close)
		if interval := cfg.Store.BadgerGCInterval; interval > 0 {
			engine.startBackground(func(ctx context.Context) {
				bs.RunGC(ctx, interval)
			})
		}

	default:
		return fmt.Errorf("unsupported Store Backend %q", cfg.Store.Backend)
	}
	return nil
}

func newCookieManager(cfg CookieConfig, now func() time.Time) (*jwt.Manager, error) {
	jc := jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		Issuer:        cfg.Issuer,
		Now:           now,
	}
	switch jc.SigningMethod {
	case jwt.MethodEd25519:
		seed, err := base64.StdEncoding.DecodeString(cfg.Secret)
		if err != nil {
			return nil, errors.New("Cookie ed25519 Secret must be a base64 32-byte seed")
		}
		priv, pub, err := jwt.Ed25519KeysFromSeed(seed)
		if err != nil {
			return nil, err
		}
		jc.PrivateKey = priv
		jc.PublicKey = pub
	default:
		jc.PrivateKey = []byte(cfg.Secret)
	}
	return jwt.NewManager(jc)
}
