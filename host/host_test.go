package host

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSystemTimerSleeps(t *testing.T) {
	start := time.Now()
	if err := (SystemTimer{}).Sleep(context.Background(), 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected at least 20ms, got %v", elapsed)
	}
}

func TestSystemTimerZeroDelay(t *testing.T) {
	if err := (SystemTimer{}).Sleep(context.Background(), 0); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestSystemTimerContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := (SystemTimer{}).Sleep(ctx, MaxDelayMillis)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestProxyURL(t *testing.T) {
	tests := []struct {
		proxy, target, want string
	}{
		{"", "http://example.com/a", "http://example.com/a"},
		{"cors.example.org", "http://example.com/a", "https://cors.example.org/http://example.com/a"},
		{"http://localhost:8080/", "http://example.com/a", "http://localhost:8080/http://example.com/a"},
	}
	for _, tt := range tests {
		if got := ProxyURL(tt.proxy, tt.target); got != tt.want {
			t.Errorf("ProxyURL(%q, %q): expected %q, got %q", tt.proxy, tt.target, tt.want, got)
		}
	}
}

func readAll(t *testing.T, resp *FetchResponse) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestFetchPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Errorf("expected header X-Test=1, got %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(append([]byte("echo:"), b...))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	resp, err := f.Fetch(context.Background(), &FetchRequest{
		URL:     srv.URL,
		Method:  http.MethodPost,
		Headers: []Header{{Name: "X-Test", Value: "1"}},
		Body:    []byte("hi"),
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.Status)
	}
	if resp.Redirected {
		t.Error("expected no redirect")
	}
	if got := readAll(t, resp); got != "echo:hi" {
		t.Errorf("expected echo:hi, got %q", got)
	}
}

func TestFetchRedirected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := NewHTTPFetcher().Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/old"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !resp.Redirected {
		t.Error("expected redirected flag")
	}
	if got := readAll(t, resp); got != "moved" {
		t.Errorf("expected moved, got %q", got)
	}
}

func TestFetchNotRedirectedWhenURLIsNormalised(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
		path string
	}{
		{"space in path", srv.URL + "/a b", "/a b"},
		{"uppercase scheme", "HTTP" + strings.TrimPrefix(srv.URL, "http") + "/x", "/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewHTTPFetcher().Fetch(context.Background(), &FetchRequest{URL: tt.url})
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if resp.Redirected {
				t.Error("expected no redirect")
			}
			if got := readAll(t, resp); got != tt.path {
				t.Errorf("expected path %q, got %q", tt.path, got)
			}
		})
	}
}

func TestFetchDecodesCompressedBodies(t *testing.T) {
	const payload = "hello compressed world"

	tests := []struct {
		name     string
		encoding string
		encode   func(io.Writer) io.WriteCloser
	}{
		{"gzip", "gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"brotli", "br", func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := tt.encode(&buf)
			_, _ = zw.Write([]byte(payload))
			_ = zw.Close()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Accept-Encoding") == "" {
					t.Error("expected Accept-Encoding to be negotiated")
				}
				w.Header().Set("Content-Encoding", tt.encoding)
				_, _ = w.Write(buf.Bytes())
			}))
			defer srv.Close()

			resp, err := NewHTTPFetcher().Fetch(context.Background(), &FetchRequest{URL: srv.URL, Gzip: true})
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if got := readAll(t, resp); got != payload {
				t.Errorf("expected %q, got %q", payload, got)
			}
		})
	}
}

func TestFetchWithoutGzipLeavesBodyEncoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "" {
			t.Errorf("expected no Accept-Encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		_, _ = w.Write([]byte("raw"))
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := readAll(t, resp); got != "raw" {
		t.Errorf("expected raw, got %q", got)
	}
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 100))
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher(WithMaxBodyBytes(10)).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer resp.Body.Close()
	if _, err := io.ReadAll(resp.Body); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}

	exact, err := NewHTTPFetcher(WithMaxBodyBytes(100)).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := readAll(t, exact); len(got) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(got))
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewHTTPFetcher(WithTimeout(time.Second)).Fetch(context.Background(), &FetchRequest{URL: url}); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestZapConsoleSplitsLines(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewZapConsole(zap.New(core))

	c.Log("first\r\nsecond\n")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "first" || entries[1].Message != "second" {
		t.Errorf("unexpected messages %q, %q", entries[0].Message, entries[1].Message)
	}
	if entries[0].LoggerName != "guest" {
		t.Errorf("expected logger name guest, got %q", entries[0].LoggerName)
	}
}
