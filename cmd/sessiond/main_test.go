package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessiond.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
log:
  format: console
token:
  lifetime: 5m
`), 0o600))
	t.Setenv("SESSIOND_LOG_LEVEL", "debug")
	t.Setenv("SESSIOND_RATELIMIT_ISSUANCE_LIMIT", "3")

	cfg, d, err := loadConfigs(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", d.Server.Addr)
	assert.Equal(t, "console", d.Log.Format)
	assert.Equal(t, "debug", d.Log.Level)
	assert.Equal(t, 15*time.Second, d.Server.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Token.Lifetime)
	assert.Equal(t, 3, cfg.RateLimit.Issuance.Limit)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", "json", &buf)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"service":"sessiond"`)

	_, err = newLogger("loud", "json", &buf)
	assert.Error(t, err)
	_, err = newLogger("info", "xml", &buf)
	assert.Error(t, err)
}

func TestConfigCommandPrintsReport(t *testing.T) {
	t.Setenv("SESSIOND_COOKIE_SECRET", "super-secret-value-that-is-long-enough")

	var out bytes.Buffer
	a := app()
	a.Writer = &out
	require.NoError(t, a.Run([]string{"sessiond", "config"}))

	var printed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Contains(t, printed, "daemon")
	assert.Contains(t, printed, "engine")
	assert.Contains(t, printed, "security")
	assert.NotContains(t, out.String(), "super-secret-value")
}

func TestBuildEngineRequiresRedisAddrInProduction(t *testing.T) {
	cfg := sessiongate.DefaultConfig()
	cfg.Security.ProductionMode = true

	rt, err := buildEngine(cfg, defaultDaemonConfig(), zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, rt)
	assert.Contains(t, err.Error(), "redis.addr required in production mode")
}

func TestBuildEngineEmbeddedRedisOutsideProduction(t *testing.T) {
	cfg := sessiongate.DefaultConfig()

	rt, err := buildEngine(cfg, defaultDaemonConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer rt.close()
	require.NotNil(t, rt.ready)
	assert.NoError(t, rt.ready(context.Background()))
}

func TestServeIssuesAndShutsDown(t *testing.T) {
	cfg := sessiongate.DefaultConfig()
	cfg.Store.Backend = sessiongate.StoreBackendMemory
	cfg.Metrics.Enabled = true

	d := defaultDaemonConfig()
	d.Server.Addr = "127.0.0.1:18631"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, d, zerolog.Nop()) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post("http://"+d.Server.Addr+"/session/token", "application/json", nil)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 5*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	m, err := http.Get("http://" + d.Server.Addr + "/metrics")
	require.NoError(t, err)
	m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
