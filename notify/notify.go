// Package notify implements a monotonic high-water-mark broadcaster:
// consumers block until a published sortID exceeds the one they last
// saw, rather than polling.
package notify

import (
	"context"
	"sync"
)

// HighWaterMark tracks a single non-decreasing uint64 and wakes blocked
// waiters whenever it advances. The zero value is ready to use.
type HighWaterMark struct {
	once sync.Once
	mu   sync.Mutex
	cond *sync.Cond
	mark uint64
}

func (hw *HighWaterMark) init() {
	hw.once.Do(func() {
		hw.cond = sync.NewCond(&hw.mu)
	})
}

// Advance raises the mark to value if value is greater than the current
// mark, waking every waiter. Advancing to a value at or below the
// current mark is a silent no-op: the mark never moves backward.
func (hw *HighWaterMark) Advance(value uint64) {
	hw.init()
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if value > hw.mark {
		hw.mark = value
		hw.cond.Broadcast()
	}
}

// Value returns the current mark.
func (hw *HighWaterMark) Value() uint64 {
	hw.init()
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.mark
}

// Wait blocks until the mark exceeds after or ctx ends, whichever comes
// first, then returns the mark at that moment. A caller that wants to
// keep waiting for further progress should loop, passing the returned
// value back in as the next after.
func (hw *HighWaterMark) Wait(ctx context.Context, after uint64) (uint64, error) {
	hw.init()

	stop := context.AfterFunc(ctx, func() {
		hw.mu.Lock()
		hw.cond.Broadcast()
		hw.mu.Unlock()
	})
	defer stop()

	hw.mu.Lock()
	defer hw.mu.Unlock()
	for hw.mark <= after {
		if err := ctx.Err(); err != nil {
			return hw.mark, err
		}
		hw.cond.Wait()
	}
	return hw.mark, nil
}
