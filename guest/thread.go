package guest

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/pool"
)

// Thread is the instance a guest worker keeps for one thread id. It is only
// used from that worker, so it needs no locking.
type Thread struct {
	mod    api.Module
	ec     pool.ExecContext
	exited bool
}

var _ pool.GuestThread = (*Thread)(nil)

// ThreadID implements pool.GuestThread.
func (t *Thread) ThreadID() uint32 { return t.ec.ThreadID }

// Module returns the underlying instance.
func (t *Thread) Module() api.Module { return t.mod }

// Run calls entry, or DefaultEntry when entry is empty.
func (t *Thread) Run(ctx context.Context, entry string) error {
	if entry == "" {
		entry = DefaultEntry
	}
	_, err := t.Call(ctx, entry)
	return err
}

// Call invokes an exported function. proc_exit(0) counts as success; once
// the guest has exited every further call fails.
func (t *Thread) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if t.exited {
		return nil, errors.Closed(errors.PhaseGuest, "guest thread")
	}

	fn := t.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseGuest, "export", name)
	}

	res, err := fn.Call(ctx, params...)
	if err == nil {
		return res, nil
	}

	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		t.exited = true
		if exit.ExitCode() == 0 {
			return nil, nil
		}
		return nil, errors.Exit(exit.ExitCode())
	}
	return nil, errors.Wrap(errors.PhaseGuest, errors.KindInvalidData, err, "call "+name)
}

// Close implements pool.GuestThread.
func (t *Thread) Close(ctx context.Context) error {
	return t.mod.Close(ctx)
}
