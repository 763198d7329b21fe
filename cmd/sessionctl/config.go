package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/client"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

type ctlConfig struct {
	Server struct {
		URL     string        `koanf:"url"`
		Timeout time.Duration `koanf:"timeout"`
		Header  string        `koanf:"header"`
	} `koanf:"server"`
	RefreshTimeout time.Duration `koanf:"refreshtimeout"`
}

func defaultCtlConfig() ctlConfig {
	var c ctlConfig
	c.Server.URL = "http://localhost:8080"
	c.Server.Timeout = 30 * time.Second
	c.Server.Header = client.DefaultHeader
	c.RefreshTimeout = client.DefaultRefreshTimeout
	return c
}

// loadCtlConfig reads defaults, then the config file, then SESSIONCTL_*
// variables, then command-line flags.
func loadCtlConfig(c *cli.Context) (ctlConfig, error) {
	cfg := defaultCtlConfig()
	if err := sessiongate.LoadInto(c.String("config"), envPrefix, &cfg); err != nil {
		return ctlConfig{}, err
	}
	if s := c.String("server"); s != "" {
		cfg.Server.URL = s
	}
	if cfg.Server.URL == "" {
		return ctlConfig{}, fmt.Errorf("server.url must not be empty")
	}
	return cfg, nil
}

func newClient(c *cli.Context, cfg ctlConfig) (*client.Client, error) {
	return client.New(cfg.Server.URL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
		client.WithHeader(cfg.Server.Header),
		client.WithRefreshTimeout(cfg.RefreshTimeout),
		client.WithLogger(cliLogger(c, c.App.ErrWriter)),
	)
}

func cliLogger(c *cli.Context, w io.Writer) zerolog.Logger {
	if !c.Bool("verbose") {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
