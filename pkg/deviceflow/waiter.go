package deviceflow

import (
	"context"
	"time"
)

// Poller is the single-attempt operation the Waiter drives.
type Poller interface {
	Poll(ctx context.Context) PollResult
}

// Waiter is the caller-side polling loop. It owns the timer: it waits the
// current interval before every attempt and moves to the server's interval after
// a slow_down, never polling again immediately.
type Waiter struct {
	// After defaults to time.After.
	After func(time.Duration) <-chan time.Time
	// OnUpdate, if set, sees every poll result.
	OnUpdate func(PollResult)
}

// Wait polls p until it reports a terminal state or ctx is done.
func (w Waiter) Wait(ctx context.Context, p Poller, interval time.Duration) PollResult {
	after := w.After
	if after == nil {
		after = time.After
	}
	if interval <= 0 {
		interval = defaultInterval * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return PollResult{State: StateAwaiting, Signal: SignalCancelled, Message: ctx.Err().Error()}
		case <-after(interval):
		}

		res := p.Poll(ctx)
		if w.OnUpdate != nil {
			w.OnUpdate(res)
		}
		if res.State.Terminal() {
			return res
		}
		if res.Signal == SignalSlowDown && res.Interval() > 0 {
			interval = res.Interval()
		}
	}
}
