package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/httpapi"
	promexport "github.com/MrEthical07/sessiongate/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides server.addr",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, d, err := loadConfigs(c.String("config"))
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				d.Server.Addr = addr
			}

			logger, err := newLogger(d.Log.Level, d.Log.Format, os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, d, logger)
		},
	}
}

func serve(ctx context.Context, cfg sessiongate.Config, d daemonConfig, logger zerolog.Logger) error {
	rt, err := buildEngine(cfg, d, logger)
	if err != nil {
		return err
	}
	defer rt.close()
	engine := rt.engine

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			promexport.NewPrometheusExporter(engine),
		)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	api := http.NewServeMux()
	api.Handle("/api/echo", httpapi.EchoHandler())

	srv := &http.Server{
		Addr: d.Server.Addr,
		Handler: httpapi.NewRouter(engine, httpapi.Options{
			Logger:  logger,
			API:     api,
			Metrics: metricsHandler,
			Ready:   rt.ready,
		}),
		ReadHeaderTimeout: d.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", d.Server.Addr).
			Str("store", cfg.Store.Backend).
			Dur("token_lifetime", cfg.Token.Lifetime).
			Msg("sessiond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("stopped")
	return nil
}

type backends struct {
	engine  *sessiongate.Engine
	ready   func(ctx context.Context) error
	closers []func()
}

// close releases resources in reverse order, so the engine goes before the
// Redis client it uses.
func (rt *backends) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildEngine connects the configured backends and builds the engine.
func buildEngine(cfg sessiongate.Config, d daemonConfig, logger zerolog.Logger) (*backends, error) {
	rt := &backends{}

	b := sessiongate.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(sessiongate.NewLoggerSink(logger.With().Str("component", "audit").Logger()))

	if needsRedis(cfg) {
		addr := d.Redis.Addr
		if addr == "" {
			if cfg.Security.ProductionMode {
				return nil, errors.New("redis.addr required in production mode")
			}
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start embedded redis: %w", err)
			}
			rt.closers = append(rt.closers, mr.Close)
			addr = mr.Addr()
			logger.Warn().Str("addr", addr).Msg("redis.addr not set, using embedded miniredis")
		}

		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{addr},
			Password: d.Redis.Password,
			DB:       d.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			rt.close()
			return nil, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		rt.ready = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
		b = b.WithRedis(rdb)
	}

	engine, err := b.Build()
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.engine = engine
	rt.closers = append(rt.closers, func() {
		if err := engine.Close(); err != nil {
			logger.Warn().Err(err).Msg("engine close")
		}
	})
	return rt, nil
}

func needsRedis(cfg sessiongate.Config) bool {
	if cfg.Store.Backend == sessiongate.StoreBackendRedis {
		return true
	}
	return cfg.RateLimit.Backend == sessiongate.StoreBackendRedis
}
