package wasihost

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasi-host/cache"
	"github.com/wippyai/wasi-host/pool"
)

func TestSetLoggerNamesPackages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	pool.Logger().Info("from pool")
	cache.Logger().Info("from cache")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "pool" {
		t.Errorf("expected logger pool, got %q", entries[0].LoggerName)
	}
	if entries[1].LoggerName != "cache" {
		t.Errorf("expected logger cache, got %q", entries[1].LoggerName)
	}
}
