package host

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// Default fetch limits.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBodyBytes = 64 << 20
)

// Header is one request header. Order and duplicates are preserved.
type Header struct {
	Name  string
	Value string
}

// FetchRequest is the input of a host fetch.
type FetchRequest struct {
	URL     string
	Method  string
	Headers []Header
	Body    []byte
	// Gzip asks the host to negotiate and decode compressed responses.
	Gzip bool
	// CORSProxy, when set, routes the request through this proxy host.
	CORSProxy string
}

// FetchResponse is the outcome of a host fetch. The caller owns Body and must
// close it.
type FetchResponse struct {
	Body       io.ReadCloser
	Status     int
	Redirected bool
}

// Fetcher performs outbound HTTP requests.
type Fetcher interface {
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error)
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout bounds each request including reading the body.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

// WithMaxBodyBytes limits the decoded response body. Reads beyond it fail.
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) { f.maxBody = n }
}

// WithTransport replaces the round tripper, mostly for tests.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *HTTPFetcher) { f.client.Transport = rt }
}

// NewHTTPFetcher creates a fetcher. Transparent compression of the standard
// transport is disabled; decoding is driven by FetchRequest.Gzip.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableCompression = true

	f := &HTTPFetcher{
		client: &http.Client{
			Timeout:   DefaultFetchTimeout,
			Transport: tr,
		},
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := ProxyURL(req.CORSProxy, req.URL)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for _, h := range req.Headers {
		hreq.Header.Add(h.Name, h.Value)
	}
	if req.Gzip && hreq.Header.Get("Accept-Encoding") == "" {
		hreq.Header.Set("Accept-Encoding", "gzip, br")
	}

	resp, err := f.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	requested := hreq.URL.String()
	finalURL := requested
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	rc, err := decodeBody(resp, req.Gzip)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	return &FetchResponse{
		Body:       &limitedBody{rc: rc, left: f.maxBody},
		Status:     resp.StatusCode,
		Redirected: finalURL != requested,
	}, nil
}

// ProxyURL rewrites target to go through a CORS proxy. A proxy without a
// scheme is reached over https. An empty proxy returns target unchanged.
func ProxyURL(proxy, target string) string {
	if proxy == "" {
		return target
	}
	proxy = strings.TrimRight(proxy, "/")
	if !strings.Contains(proxy, "://") {
		proxy = "https://" + proxy
	}
	return proxy + "/" + target
}

func decodeBody(resp *http.Response, decode bool) (io.ReadCloser, error) {
	if !decode {
		return resp.Body, nil
	}
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil
	case "br":
		return &stackedReader{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	default:
		return resp.Body, nil
	}
}

type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ErrBodyTooLarge is returned by a response body that exceeds the limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

type limitedBody struct {
	rc   io.ReadCloser
	left int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.left <= 0 {
		// Distinguish an exact-size body from an oversized one.
		var probe [1]byte
		n, err := l.rc.Read(probe[:])
		if n > 0 {
			return 0, ErrBodyTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.left {
		p = p[:l.left]
	}
	n, err := l.rc.Read(p)
	l.left -= int64(n)
	return n, err
}

func (l *limitedBody) Close() error { return l.rc.Close() }
