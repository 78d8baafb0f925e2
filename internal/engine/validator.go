package engine

import (
	"context"
	"fmt"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"github.com/shopspring/decimal"
)

type decision int

const (
	decisionAccept decision = iota
	decisionReject
	// decisionDivert routes a tip to an unregistered recipient onto the
	// escrow path; it is neither a pass nor a rejection.
	decisionDivert
)

// validate decides whether a monetary action may execute. Checks run in
// a fixed order and short-circuit on the first failure; a rejection is
// terminal for the action. It reads ledger and store state but mutates
// neither.
func (e *Engine) validate(ctx context.Context, action models.Action) (decision, models.RejectionReason, error) {
	registered, err := e.store.IsRegistered(ctx, action.Source)
	if err != nil {
		return decisionReject, "", err
	}
	if !registered {
		return decisionReject, models.ReasonNotRegistered, nil
	}

	if action.Amount.LessThan(e.minimumFor(action)) {
		return decisionReject, models.ReasonBelowMinimum, nil
	}

	if ok, err := e.sufficientBalance(ctx, action); err != nil {
		return decisionReject, "", err
	} else if !ok {
		return decisionReject, models.ReasonInsufficientBalance, nil
	}

	if action.Kind == models.KindTip && action.Destination != "" {
		if action.Destination == action.Source {
			return decisionReject, models.ReasonSelfTip, nil
		}
		if action.Destination == models.EscrowAccount {
			return decisionReject, models.ReasonInvalidDestination, nil
		}
		exists, err := e.identity.Exists(ctx, action.Destination)
		if err != nil {
			return decisionReject, "", fmt.Errorf("resolving destination %s: %w", action.Destination, err)
		}
		if !exists {
			return decisionReject, models.ReasonInvalidDestination, nil
		}

		alreadyPending, err := e.store.ActionExists(ctx, store.ActionQuery{
			Kind:        models.KindTip,
			Status:      models.StatusPending,
			Source:      action.Source,
			Destination: action.Destination,
		})
		if err != nil {
			return decisionReject, "", err
		}
		if alreadyPending {
			return decisionReject, models.ReasonDuplicatePending, nil
		}

		destRegistered, err := e.store.IsRegistered(ctx, action.Destination)
		if err != nil {
			return decisionReject, "", err
		}
		if !destRegistered {
			return decisionDivert, "", nil
		}
	}

	if action.Address != "" {
		valid, err := e.ledger.ValidateAddress(ctx, action.Address)
		if err != nil {
			return decisionReject, "", fmt.Errorf("validating address %s: %w", action.Address, err)
		}
		if !valid {
			return decisionReject, models.ReasonInvalidAddress, nil
		}
	}

	return decisionAccept, "", nil
}

// minimumFor returns the configured minimum; address-targeted tips use
// the withdraw minimum, matching their confirmation policy.
func (e *Engine) minimumFor(action models.Action) decimal.Decimal {
	if action.Kind == models.KindWithdraw || action.Address != "" {
		return e.cfg.WithdrawMinimum
	}
	return e.cfg.TipMinimum
}

// sufficientBalance checks the source balance under the
// kind-appropriate confirmation policy. External sends must also cover
// the network fee. The epsilon tolerance applies here and only here.
func (e *Engine) sufficientBalance(ctx context.Context, action models.Action) (bool, error) {
	need := action.Amount
	minConf := e.cfg.TipMinConf
	if action.Kind == models.KindWithdraw || action.Address != "" {
		need = need.Add(e.txFee)
		minConf = e.cfg.WithdrawMinConf
	}

	balance, err := e.ledger.Balance(ctx, action.Source, minConf)
	if err != nil {
		return false, fmt.Errorf("balance for %s: %w", action.Source, err)
	}

	if balance.GreaterThanOrEqual(need) {
		return true, nil
	}
	return need.Sub(balance).Abs().LessThan(balanceEpsilon), nil
}
