package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasi-host/config"
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/runtime"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   uint32
		isExit bool
	}{
		{"nil", nil, 0, false},
		{"plain", fmt.Errorf("boom"), 0, false},
		{"exit", errors.Exit(3), 3, true},
		{"wrapped exit", fmt.Errorf("run: %w", errors.Exit(7)), 7, true},
		{"other kind", errors.InvalidInput(errors.PhaseGuest, "x"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := exitCode(tt.err)
			if ok != tt.isExit || code != tt.code {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.code, tt.isExit, code, ok)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", "")
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Log.Level != config.Default().Log.Level {
		t.Errorf("expected default level, got %q", cfg.Log.Level)
	}

	cfg, err = loadConfig("", "debug")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Log.Level)
	}

	if _, err := loadConfig("", "loud"); err == nil {
		t.Error("expected invalid level to fail")
	}

	path := filepath.Join(t.TempDir(), "wasihost.yaml")
	if err := os.WriteFile(path, []byte("terminal:\n  cols: 132\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path, "")
	if err != nil {
		t.Fatalf("file config: %v", err)
	}
	if cfg.Terminal.Cols != 132 {
		t.Errorf("expected 132 cols, got %d", cfg.Terminal.Cols)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("level %s: %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("expected invalid level to fail")
	}
}

func TestEncodeDecodeArgs(t *testing.T) {
	tests := []struct {
		in  string
		typ api.ValueType
		out string
	}{
		{"-5", api.ValueTypeI32, "-5"},
		{"0x10", api.ValueTypeI32, "16"},
		{"9000000000", api.ValueTypeI64, "9000000000"},
		{"1.5", api.ValueTypeF32, "1.5"},
		{"2.25", api.ValueTypeF64, "2.25"},
	}
	for _, tt := range tests {
		v, err := encodeArg(tt.in, tt.typ)
		if err != nil {
			t.Errorf("encode %q: %v", tt.in, err)
			continue
		}
		if got := decodeResult(v, tt.typ); got != tt.out {
			t.Errorf("expected %s, got %s", tt.out, got)
		}
	}

	if _, err := encodeArg("abc", api.ValueTypeI32); err == nil {
		t.Error("expected parse error")
	}
	if _, err := encodeArg("1", api.ValueTypeExternref); err == nil {
		t.Error("expected unsupported type error")
	}
}

func TestJobMissingFile(t *testing.T) {
	rt, err := runtime.New(context.Background())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer rt.Close(context.Background())

	j := job{wasm: filepath.Join(t.TempDir(), "missing.wasm"), tid: 1}
	if err := j.run(context.Background(), rt); err == nil {
		t.Error("expected error for missing module file")
	}
}

func TestRouter(t *testing.T) {
	rt, err := runtime.New(context.Background())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer rt.Close(context.Background())

	done := make(chan struct{})
	srv := httptest.NewServer(newRouter(rt, done))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	close(done)
	resp, err = http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), "finished 80x25") {
		t.Errorf("expected finished status, got %q", body)
	}
}
