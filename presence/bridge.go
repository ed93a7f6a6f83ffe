package presence

import (
	"context"
	"time"

	"htbpresence/htb"
	"htbpresence/tracer"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Bridge mirrors HTB status onto a presence Client, skipping pushes that
// would not change what is displayed.
type Bridge struct {
	log     *zap.Logger
	client  Client
	account string
	now     func() time.Time
}

func NewBridge(log *zap.Logger, client Client, account string) *Bridge {
	return &Bridge{
		log:     log,
		client:  client,
		account: account,
		now:     time.Now,
	}
}

// Update pushes current if it differs from previous and returns the new
// State. When the client fails, previous is returned unchanged together with
// a *Error so that the next call retries the same push. If the client lost
// its channel since the last push, previous no longer describes what is
// displayed and is treated as uninitialized.
func (b *Bridge) Update(ctx context.Context, current htb.Status, previous State) (next State, err error) {
	_, span := tracer.Start(ctx, "presence.update")
	defer func() {
		span.SetAttributes(
			attribute.String("presence.previous", previous.String()),
			attribute.String("presence.next", next.String()),
		)
		tracer.End(span, err)
	}()

	if !previous.Uninitialized() {
		if lc, ok := b.client.(LivenessChecker); ok && !lc.Alive() {
			b.log.Warn("presence channel lost, republishing", zap.Stringer("previous", previous))
			previous = State{}
		}
	}

	if previous.Represents(current) {
		return previous, nil
	}

	if !current.Active {
		if err := b.client.ClearActivity(); err != nil {
			return previous, &Error{Op: OpClear, Err: err}
		}
		b.log.Info("presence cleared", zap.Stringer("previous", previous))
		return Cleared(), nil
	}

	act := BuildActivity(current, b.account)
	if err := b.client.SetActivity(act); err != nil {
		return previous, &Error{Op: OpSet, Err: err}
	}

	fields := []zap.Field{
		zap.String("machine", current.MachineName),
		zap.Stringer("previous", previous),
	}
	if current.StartedAt != nil {
		fields = append(fields, zap.String("elapsed", FormatElapsed(b.now().Sub(*current.StartedAt))))
	}
	b.log.Info("presence updated", fields...)

	return Shown(current), nil
}

// Shutdown clears whatever is on display and closes the client. Both steps
// are attempted even if the first fails.
func (b *Bridge) Shutdown(state State) error {
	var err error
	if _, shown := state.Status(); shown {
		if clearErr := b.client.ClearActivity(); clearErr != nil {
			err = multierr.Append(err, &Error{Op: OpClear, Err: clearErr})
		}
	}
	if closeErr := b.client.Close(); closeErr != nil {
		err = multierr.Append(err, closeErr)
	}
	return err
}
