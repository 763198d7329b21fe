package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// daemonConfig holds the process settings that live beside the engine
// config in the same file and environment namespace.
type daemonConfig struct {
	Server struct {
		Addr              string        `koanf:"addr" json:"addr"`
		ReadHeaderTimeout time.Duration `koanf:"readheadertimeout" json:"readHeaderTimeout"`
		ShutdownTimeout   time.Duration `koanf:"shutdowntimeout" json:"shutdownTimeout"`
	} `koanf:"server" json:"server"`
	Log struct {
		Level  string `koanf:"level" json:"level"`
		Format string `koanf:"format" json:"format"`
	} `koanf:"log" json:"log"`
	Redis struct {
		// Addr empty starts an embedded miniredis for local use.
		Addr     string `koanf:"addr" json:"addr"`
		Password string `koanf:"password" json:"-"`
		DB       int    `koanf:"db" json:"db"`
	} `koanf:"redis" json:"redis"`
}

func defaultDaemonConfig() daemonConfig {
	var d daemonConfig
	d.Server.Addr = ":8080"
	d.Server.ReadHeaderTimeout = 5 * time.Second
	d.Server.ShutdownTimeout = 15 * time.Second
	d.Log.Level = "info"
	d.Log.Format = "json"
	return d
}

func loadConfigs(path string) (sessiongate.Config, daemonConfig, error) {
	cfg, err := sessiongate.LoadConfig(path, envPrefix)
	if err != nil {
		return sessiongate.Config{}, daemonConfig{}, err
	}
	d := defaultDaemonConfig()
	if err := sessiongate.LoadInto(path, envPrefix, &d); err != nil {
		return sessiongate.Config{}, daemonConfig{}, err
	}
	if d.Server.Addr == "" {
		return sessiongate.Config{}, daemonConfig{}, fmt.Errorf("server.addr must not be empty")
	}
	return cfg, d, nil
}

func newLogger(level, format string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log.level: %w", err)
	}

	var w io.Writer = out
	switch format {
	case "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "", "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log.format %q: want json or console", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "sessiond").Logger(), nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the effective configuration and security report",
		Action: func(c *cli.Context) error {
			cfg, d, err := loadConfigs(c.String("config"))
			if err != nil {
				return err
			}

			rt, err := buildEngine(cfg, d, zerolog.Nop())
			if err != nil {
				return err
			}
			defer rt.close()

			redacted := cfg
			if redacted.Cookie.Secret != "" {
				redacted.Cookie.Secret = "<redacted>"
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"daemon":   d,
				"engine":   redacted,
				"security": rt.engine.SecurityReport(),
			})
		},
	}
}
