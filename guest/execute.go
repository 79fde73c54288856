package guest

import (
	"context"

	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/oneshot"
	"github.com/wippyai/wasi-host/pool"
)

// Spawner runs guest tasks. *pool.Pool and tasks.Manager implement it.
type Spawner interface {
	SpawnGuest(t pool.GuestTask) error
}

// Execute runs ec's entry on the guest worker for ec.ThreadID and resolves
// with its outcome. The future fails with ErrDropped if the thread could not
// be created or the pool closed first.
func Execute(s Spawner, ec pool.ExecContext) *oneshot.Future[struct{}] {
	tx, fut := oneshot.NewFuture[struct{}]()

	err := s.SpawnGuest(pool.GuestTask{
		Context: ec,
		Run: func(ctx context.Context, th pool.GuestThread) {
			t, ok := th.(*Thread)
			if !ok {
				_ = tx.Send(oneshot.Result[struct{}]{Err: errors.InvalidInput(errors.PhaseGuest, "thread is not a wasm guest thread")})
				return
			}
			_ = tx.Send(oneshot.Result[struct{}]{Err: t.Run(ctx, ec.Entry)})
		},
		Drop: tx.Close,
	})
	if err != nil {
		return oneshot.Failed[struct{}](err)
	}
	return fut
}
