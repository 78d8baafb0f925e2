package engine

import (
	"context"
	"fmt"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"github.com/shopspring/decimal"
)

// ConsistencyError is a startup or periodic invariant violation. It is
// fatal: processing must stop for operator intervention, there is no
// automatic recovery.
type ConsistencyError struct {
	msg string
}

func (e *ConsistencyError) Error() string { return e.msg }

func consistencyErrorf(format string, args ...any) *ConsistencyError {
	return &ConsistencyError{msg: fmt.Sprintf(format, args...)}
}

// SelfCheck verifies the escrow covers all pending tips and that no
// user balance is negative. Incomplete registrations are repaired as a
// side effect of the per-user check.
func (e *Engine) SelfCheck(ctx context.Context) error {
	pending, err := e.store.FindActions(ctx, store.ActionQuery{
		Kind:   models.KindTip,
		Status: models.StatusPending,
	})
	if err != nil {
		return err
	}

	pendingTotal := decimal.Zero
	for _, tip := range pending {
		pendingTotal = pendingTotal.Add(tip.Amount)
	}

	escrowBalance, err := e.ledger.Balance(ctx, models.EscrowAccount, e.cfg.TipMinConf)
	if err != nil {
		return fmt.Errorf("escrow balance: %w", err)
	}
	if escrowBalance.Add(balanceEpsilon).LessThan(pendingTotal) {
		return consistencyErrorf("escrow balance %s does not cover pending tips total %s",
			escrowBalance, pendingTotal)
	}

	usernames, err := e.store.AllUsernames(ctx)
	if err != nil {
		return err
	}
	for _, username := range usernames {
		registered, err := e.store.IsRegistered(ctx, username)
		if err != nil {
			return err
		}
		if !registered {
			// Orphan row was just repaired; nothing else to verify.
			continue
		}
		balance, err := e.ledger.Balance(ctx, username, e.cfg.TipMinConf)
		if err != nil {
			return fmt.Errorf("balance for %s: %w", username, err)
		}
		if balance.IsNegative() {
			return consistencyErrorf("user %s has negative balance %s", username, balance)
		}
	}

	return nil
}
