package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/testutil"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.Host = "127.0.0.1"
	require.NoError(t, cfg.Validate())
	return cfg
}

func serve(t *testing.T, a *app) (string, context.CancelFunc, chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, ln) }()
	return "http://" + ln.Addr().String(), cancel, done
}

func TestApp_ServesAndShutsDown(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Metrics.Enabled = true
	logger := testutil.NewMockLogger()

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer a.Close()
	assert.Len(t, a.healthCheckers(), 1)

	base, cancel, done := serve(t, a)

	resp, err := http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "helmkit_monomer_library_size")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, logger.HasMessage("info", "Shutdown signal received"))
}

func TestApp_RedisCacheAndReloadPurge(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := defaultConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	a, err := newApp(context.Background(), cfg, testutil.NewMockLogger())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.cache)
	assert.Len(t, a.healthCheckers(), 2)

	ctx := context.Background()
	res, err := a.service.Canonicalize(ctx, notationInput("PEPTIDE1{K}|PEPTIDE2{A}$$$$"))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	res, err = a.service.Canonicalize(ctx, notationInput("PEPTIDE1{K}|PEPTIDE2{A}$$$$"))
	require.NoError(t, err)
	assert.True(t, res.Cached)

	a.onLibraryReload(ctx)(3, nil)
	assert.Empty(t, mr.Keys())
}

func TestApp_RedisDownDisablesCache(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 100 * time.Millisecond
	logger := testutil.NewMockLogger()

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.cache)
	assert.True(t, logger.HasMessage("warn", "Redis unavailable, canonical cache disabled"))
}

func TestApp_LibraryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`monomers:
  - id: Tza
    polymer_type: PEPTIDE
    role: backbone
    natural_analog: A
    attachments: [R1, R2]
`), 0o600))
	cfg := defaultConfig(t)
	cfg.Monomers.LibraryPath = path

	a, err := newApp(context.Background(), cfg, testutil.NewMockLogger())
	require.NoError(t, err)
	defer a.Close()

	res, err := a.service.Validate(context.Background(), notationInput("PEPTIDE1{A.Tza}$$$$"))
	require.NoError(t, err)
	assert.True(t, res.Valid, fmt.Sprint(res.Error))
}

func TestApp_BadLibraryFails(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Monomers.LibraryPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := newApp(context.Background(), cfg, testutil.NewMockLogger())
	assert.Error(t, err)
}

func notationInput(helm string) *notation.Input { return &notation.Input{HELM: helm} }
