package packages

import (
	"context"
	"net/http"

	"github.com/wippyai/wasi-host/cache"
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/httpbridge"
)

// HTTPLoader downloads package binaries and keeps them in a module cache.
type HTTPLoader struct {
	client httpbridge.Client
	cache  cache.ModuleCache
}

var _ Loader = (*HTTPLoader)(nil)

// NewHTTPLoader creates a loader. mc may be nil to disable caching.
func NewHTTPLoader(client httpbridge.Client, mc cache.ModuleCache) *HTTPLoader {
	return &HTTPLoader{client: client, cache: mc}
}

// Load implements Loader. When meta.Hash is a blake3 digest (see
// cache.NormalizeKey) and the module is cached, it is returned without a
// download. Downloaded binaries are stored under their content key.
func (l *HTTPLoader) Load(ctx context.Context, meta *Metadata) ([]byte, error) {
	if key, ok := cache.NormalizeKey(meta.Hash); ok && l.cache != nil {
		data, hit, err := l.cache.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if hit {
			return data, nil
		}
	}

	if meta.DownloadURL == "" {
		return nil, errors.InvalidInput(errors.PhasePackage, "package "+meta.Name+" has no download_url")
	}

	resp, err := l.client.Request(&httpbridge.Request{
		URL:     meta.DownloadURL,
		Method:  http.MethodGet,
		Options: httpbridge.Options{Gzip: true},
	}).Await(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.Status.IsSuccess() {
		return nil, errors.New(errors.PhasePackage, errors.KindRequest).
			Op("load").
			Value(resp.Status.Code()).
			Detail("download of %q returned status %d", meta.Name, resp.Status.Code()).
			Build()
	}

	if l.cache != nil {
		if err := l.cache.Save(ctx, cache.Key(resp.Body), resp.Body); err != nil {
			return nil, err
		}
	}
	return resp.Body, nil
}
