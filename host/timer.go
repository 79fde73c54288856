package host

import (
	"context"
	"math"
	"time"
)

// MaxDelayMillis is the longest delay a host timer accepts.
const MaxDelayMillis = math.MaxInt32

// Timer waits for a number of milliseconds.
type Timer interface {
	// Sleep returns nil once ms milliseconds have elapsed, or ctx.Err() if
	// ctx is done first.
	Sleep(ctx context.Context, ms int32) error
}

// SystemTimer is a Timer backed by the Go runtime timer.
type SystemTimer struct{}

// Sleep implements Timer.
func (SystemTimer) Sleep(ctx context.Context, ms int32) error {
	if ms <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
