package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"cointip-engine-go/internal/models"

	"go.uber.org/zap"
)

// MessageSource delivers platform messages to the engine. Next blocks
// until a message arrives; ok is false on an idle pause. io.EOF ends
// the run cleanly. Next should honor ctx cancellation where the
// underlying transport allows it.
type MessageSource interface {
	Next(ctx context.Context) (msg models.InboundMessage, ok bool, err error)
}

// OutcomeHandler receives every produced outcome, including sweep
// expirations. The notification collaborator renders these.
type OutcomeHandler func(models.Outcome)

type delivery struct {
	msg models.InboundMessage
	ok  bool
	err error
}

// Run is the scheduler loop: messages are processed one at a time in
// delivery order, and the expiry sweep fires on its own interval even
// while the source is idle. Source reads happen on a pump goroutine so
// a quiet source cannot starve the sweep; processing and sweeping both
// run here, one step at a time, so nothing touches the store or ledger
// concurrently.
func (e *Engine) Run(ctx context.Context, source MessageSource, handler OutcomeHandler) error {
	deliveries := make(chan delivery)
	go func() {
		defer close(deliveries)
		for {
			msg, ok, err := source.Next(ctx)
			select {
			case deliveries <- delivery{msg: msg, ok: ok, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case d, open := <-deliveries:
			if !open {
				// The pump only closes after a final error delivery or
				// on cancellation.
				return ctx.Err()
			}
			if errors.Is(d.err, io.EOF) {
				zap.L().Info("Message source drained, stopping")
				return nil
			}
			if d.err != nil {
				return d.err
			}
			if !d.ok {
				continue
			}

			outcome, err := e.Process(ctx, d.msg)
			if err != nil {
				zap.L().Error("Failed to process message",
					zap.String("message_id", d.msg.Id),
					zap.Error(err))
			} else if outcome != nil && handler != nil {
				handler(*outcome)
			}

		case <-ticker.C:
			expired, err := e.ExpirePending(ctx, time.Now())
			if err != nil {
				zap.L().Error("Expiry sweep failed", zap.Error(err))
			}
			if handler != nil {
				for _, outcome := range expired {
					handler(outcome)
				}
			}
		}
	}
}
