package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EndpointAddrHTTP = "127.0.0.1:0"
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	cfg.FSRoot = t.TempDir()
	cfg.LogLevel = "error"
	cfg.OpTimeout = time.Second
	return cfg
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestApp_RunFailsOnBusyAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.EndpointAddrGRPC = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app kept running with an unusable address")
	}
}

func TestNewApp_DatabaseError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string) (*sql.DB, error) { return nil, errors.New("no driver") }

	cfg := testConfig(t)
	cfg.DatabaseDSN = "postgres://localhost/drive"

	_, err := NewApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "db init error")
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionBackend = "redis"
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := NewApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "session store init error")
}
