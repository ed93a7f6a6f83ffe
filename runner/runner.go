package runner

import (
	"context"
	"errors"
	"time"

	"htbpresence/htb"
	"htbpresence/presence"
	"htbpresence/tracer"

	"go.uber.org/zap"
)

// StatusSource produces the current HTB status.
type StatusSource interface {
	Poll(ctx context.Context) (htb.Status, error)
}

type Runner struct {
	Log      *zap.Logger
	Source   StatusSource
	Bridge   *presence.Bridge
	Interval time.Duration
}

// Run ticks immediately and then every Interval until ctx is cancelled, at
// which point the displayed presence is cleared on a best-effort basis.
func (r *Runner) Run(ctx context.Context) presence.State {
	var state presence.State

	for {
		state = r.RunOnce(ctx, state)

		select {
		case <-ctx.Done():
			r.shutdown(state)
			return state
		case <-time.After(r.Interval):
		}
	}
}

// RunOnce performs a single tick. Fetch failures leave state untouched;
// presence failures are logged and retried on the next tick by the bridge.
func (r *Runner) RunOnce(ctx context.Context, state presence.State) presence.State {
	ctx, span := tracer.Start(ctx, "runner.tick")
	defer span.End()

	status, err := r.Source.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.Log.Warn("failed to fetch htb status, retrying next tick", zap.Error(err))
		}
		return state
	}

	next, err := r.Bridge.Update(ctx, status, state)
	if err != nil {
		var perr *presence.Error
		if errors.As(err, &perr) {
			r.Log.Warn("failed to update presence, retrying next tick",
				zap.String("op", perr.Op),
				zap.Error(perr.Err),
			)
		} else {
			r.Log.Error("unexpected presence error", zap.Error(err))
		}
	}

	return next
}

func (r *Runner) shutdown(state presence.State) {
	r.Log.Info("stopping, clearing presence", zap.Stringer("state", state))
	if err := r.Bridge.Shutdown(state); err != nil {
		r.Log.Warn("failed to clean up presence", zap.Error(err))
	}
}
