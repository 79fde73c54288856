package httpbridge

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/host"
	"github.com/wippyai/wasi-host/oneshot"
	"github.com/wippyai/wasi-host/pool"
)

// Client is the HTTP client contract offered to the guest engine.
type Client interface {
	Request(req *Request) *oneshot.Future[*Response]
}

// Spawner queues shared tasks. *pool.Pool implements it.
type Spawner interface {
	SpawnShared(t pool.SharedTask) error
}

// WorkerClient performs requests on shared workers.
type WorkerClient struct {
	pool      Spawner
	fetcher   host.Fetcher
	corsProxy string
}

var _ Client = (*WorkerClient)(nil)

// ClientOption configures a WorkerClient.
type ClientOption func(*WorkerClient)

// WithDefaultCORSProxy is used for requests that do not name a proxy.
func WithDefaultCORSProxy(proxy string) ClientOption {
	return func(c *WorkerClient) { c.corsProxy = proxy }
}

// NewWorkerClient creates a client fetching through f on p's shared workers.
func NewWorkerClient(p Spawner, f host.Fetcher, opts ...ClientOption) *WorkerClient {
	c := &WorkerClient{pool: p, fetcher: f}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request implements Client. The future fails with a request error when the
// fetch, the status conversion or the body read fails, and with a thread
// error when the pool rejects the task.
func (c *WorkerClient) Request(req *Request) *oneshot.Future[*Response] {
	tx, fut := oneshot.NewFuture[*Response]()

	err := c.pool.SpawnShared(pool.SharedTask{
		Run: func(l *pool.Loop) {
			pool.Await(l, func(ctx context.Context) (*Response, error) {
				return c.do(ctx, req)
			}, func(resp *Response, err error) {
				if serr := tx.Send(oneshot.Result[*Response]{Value: resp, Err: err}); serr != nil {
					Logger().Error("failed to reply http response to caller",
						zap.String("url", req.URL), zap.Error(serr))
				}
			})
		},
		Drop: tx.Close,
	})
	if err != nil {
		return oneshot.Failed[*Response](err)
	}
	return fut
}

func (c *WorkerClient) do(ctx context.Context, req *Request) (*Response, error) {
	proxy := req.Options.CORSProxy
	if proxy == "" {
		proxy = c.corsProxy
	}

	fr, err := c.fetcher.Fetch(ctx, &host.FetchRequest{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   req.Headers,
		Body:      req.Body,
		Gzip:      req.Options.Gzip,
		CORSProxy: proxy,
	})
	if err != nil {
		return nil, errors.Request("fetch failed", err)
	}
	defer fr.Body.Close()

	status, err := StatusFromCode(fr.Status)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(fr.Body)
	if err != nil {
		return nil, errors.Request("read response body", err)
	}

	Logger().Debug("received response",
		zap.String("url", req.URL),
		zap.Int("status", status.Code()),
		zap.Int("bytes", len(data)))

	return &Response{
		Redirected: fr.Redirected,
		Status:     status,
		Body:       data,
	}, nil
}
