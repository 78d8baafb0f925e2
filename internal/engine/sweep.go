package engine

import (
	"context"
	"time"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"go.uber.org/zap"
)

// ExpirePending refunds every pending tip older than the configured
// window back to its source. Like accept/decline settlement, the sweep
// stops at the first ledger failure and leaves the remainder pending
// for the next run.
func (e *Engine) ExpirePending(ctx context.Context, now time.Time) ([]models.Outcome, error) {
	cutoff := now.Add(-e.cfg.PendingExpiry)

	candidates, err := e.store.FindActions(ctx, store.ActionQuery{
		Kind:          models.KindTip,
		Status:        models.StatusPending,
		CreatedBefore: cutoff,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	zap.L().Info("Expiring stale pending tips",
		zap.Int("count", len(candidates)),
		zap.Time("cutoff", cutoff))

	var outcomes []models.Outcome
	for _, tip := range candidates {
		if err := e.ledger.Move(ctx, models.EscrowAccount, tip.Source, tip.Amount); err != nil {
			zap.L().Error("Expiry refund failed, leaving remainder pending",
				zap.String("message_id", tip.MessageId),
				zap.String("source", tip.Source),
				zap.Error(err))
			return outcomes, err
		}
		if err := e.store.SaveAction(ctx, tip, models.StatusExpired); err != nil {
			return outcomes, err
		}
		tip.Status = models.StatusExpired
		outcomes = append(outcomes, models.Outcome{Kind: models.OutcomeExpired, Action: tip})

		zap.L().Info("Pending tip expired",
			zap.String("message_id", tip.MessageId),
			zap.String("source", tip.Source),
			zap.String("amount", tip.Amount.String()))
	}

	return outcomes, nil
}
