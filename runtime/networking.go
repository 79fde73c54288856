package runtime

import (
	"context"
	"net"

	"github.com/wippyai/wasi-host/errors"
)

// Networking is the virtual network offered to guests.
type Networking interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)
	Listen(ctx context.Context, network, address string) (net.Listener, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// NoNetworking provides no sockets.
type NoNetworking struct{}

var _ Networking = NoNetworking{}

func (NoNetworking) Dial(context.Context, string, string) (net.Conn, error) {
	return nil, errors.Unsupported(errors.PhaseIO, "dial")
}

func (NoNetworking) Listen(context.Context, string, string) (net.Listener, error) {
	return nil, errors.Unsupported(errors.PhaseIO, "listen")
}

func (NoNetworking) LookupHost(context.Context, string) ([]string, error) {
	return nil, errors.Unsupported(errors.PhaseIO, "lookup host")
}
