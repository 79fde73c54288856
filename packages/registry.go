package packages

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/httpbridge"
)

// RegistrySource resolves packages with GET {endpoint}/packages/{name}. The
// response body is the JSON encoding of Metadata.
type RegistrySource struct {
	client   httpbridge.Client
	endpoint string
}

var _ Source = (*RegistrySource)(nil)

// NewRegistrySource creates a source querying endpoint through client.
func NewRegistrySource(client httpbridge.Client, endpoint string) *RegistrySource {
	return &RegistrySource{client: client, endpoint: strings.TrimRight(endpoint, "/")}
}

// Resolve implements Source.
func (s *RegistrySource) Resolve(ctx context.Context, name string) (*Metadata, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhasePackage, "empty package name")
	}

	resp, err := s.client.Request(&httpbridge.Request{
		URL:     s.endpoint + "/packages/" + url.PathEscape(name),
		Method:  http.MethodGet,
		Headers: []httpbridge.Header{{Name: "Accept", Value: "application/json"}},
		Options: httpbridge.Options{Gzip: true},
	}).Await(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status.Code() == http.StatusNotFound:
		return nil, errors.NotFound(errors.PhasePackage, "package", name)
	case !resp.Status.IsSuccess():
		return nil, errors.New(errors.PhasePackage, errors.KindRequest).
			Op("resolve").
			Value(resp.Status.Code()).
			Detail("registry returned status %d for %q", resp.Status.Code(), name).
			Build()
	}

	var meta Metadata
	if err := json.Unmarshal(resp.Body, &meta); err != nil {
		return nil, errors.InvalidData(errors.PhasePackage, "decode package metadata", err)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	if meta.DownloadURL == "" {
		return nil, errors.InvalidData(errors.PhasePackage, "package metadata without download_url", nil)
	}
	return &meta, nil
}
