package engine

import (
	"context"
	"fmt"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"go.uber.org/zap"
)

// execute performs the ledger side effects for a built action and
// persists its terminal (or pending) record. Every kind is handled
// here; adding a kind without a case is a compile-time hole the switch
// default turns into a loud error.
func (e *Engine) execute(ctx context.Context, action models.Action) (*models.Outcome, error) {
	switch action.Kind {
	case models.KindTip, models.KindWithdraw:
		return e.executeTransfer(ctx, action)
	case models.KindAccept:
		return e.executeAccept(ctx, action)
	case models.KindDecline:
		return e.executeDecline(ctx, action)
	case models.KindRegister:
		return e.executeRegister(ctx, action)
	case models.KindInfo:
		return e.executeInfo(ctx, action)
	case models.KindHistory:
		return e.executeHistory(ctx, action)
	default:
		return nil, fmt.Errorf("unhandled action kind %q", action.Kind)
	}
}

// executeTransfer handles tips and withdrawals: validate, then either
// move funds directly, divert to escrow, or send externally.
func (e *Engine) executeTransfer(ctx context.Context, action models.Action) (*models.Outcome, error) {
	verdict, reason, err := e.validate(ctx, action)
	if err != nil {
		return nil, err
	}

	switch verdict {
	case decisionReject:
		zap.L().Info("Action rejected",
			zap.String("message_id", action.MessageId),
			zap.String("kind", string(action.Kind)),
			zap.String("reason", string(reason)))
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, reason), nil

	case decisionDivert:
		return e.divertToEscrow(ctx, action)
	}

	if action.Address != "" {
		// External send: fee-bearing, returns the network tx id.
		txId, err := e.ledger.SendToAddress(ctx, action.Source, action.Address, action.Amount, e.cfg.WithdrawMinConf)
		if err != nil {
			zap.L().Error("External send failed",
				zap.String("message_id", action.MessageId),
				zap.String("source", action.Source),
				zap.Error(err))
			if saveErr := e.store.SaveAction(ctx, action, models.StatusFailed); saveErr != nil {
				return nil, saveErr
			}
			return e.failed(action, models.ReasonLedgerFailure), nil
		}
		action.TxId = txId
	} else {
		if err := e.ledger.Move(ctx, action.Source, action.Destination, action.Amount); err != nil {
			zap.L().Error("Internal move failed",
				zap.String("message_id", action.MessageId),
				zap.String("source", action.Source),
				zap.String("destination", action.Destination),
				zap.Error(err))
			if saveErr := e.store.SaveAction(ctx, action, models.StatusFailed); saveErr != nil {
				return nil, saveErr
			}
			return e.failed(action, models.ReasonLedgerFailure), nil
		}
	}

	if err := e.store.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		return nil, err
	}
	action.Status = models.StatusCompleted
	return &models.Outcome{Kind: models.OutcomeCompleted, Action: action}, nil
}

// divertToEscrow holds a tip to an unregistered recipient in the
// escrow account until the recipient accepts, declines, or the tip
// expires.
func (e *Engine) divertToEscrow(ctx context.Context, action models.Action) (*models.Outcome, error) {
	zap.L().Info("Destination unregistered, moving tip to escrow",
		zap.String("message_id", action.MessageId),
		zap.String("source", action.Source),
		zap.String("destination", action.Destination),
		zap.String("amount", action.Amount.String()))

	if err := e.ledger.Move(ctx, action.Source, models.EscrowAccount, action.Amount); err != nil {
		zap.L().Error("Escrow move failed",
			zap.String("message_id", action.MessageId),
			zap.Error(err))
		if saveErr := e.store.SaveAction(ctx, action, models.StatusFailed); saveErr != nil {
			return nil, saveErr
		}
		return e.failed(action, models.ReasonLedgerFailure), nil
	}

	if err := e.store.SaveAction(ctx, action, models.StatusPending); err != nil {
		return nil, err
	}
	action.Status = models.StatusPending
	return &models.Outcome{Kind: models.OutcomePending, Action: action}, nil
}

// executeAccept settles every tip pending for the accepting user,
// registering the user first when needed. Settlement stops at the first
// failing item; items not reached stay pending for a later retry.
func (e *Engine) executeAccept(ctx context.Context, action models.Action) (*models.Outcome, error) {
	registered, err := e.store.IsRegistered(ctx, action.Source)
	if err != nil {
		return nil, err
	}
	if !registered {
		if err := e.registerUser(ctx, action.Source); err != nil {
			zap.L().Error("Registration during accept failed",
				zap.String("username", action.Source),
				zap.Error(err))
			if saveErr := e.store.SaveAction(ctx, action, models.StatusFailed); saveErr != nil {
				return nil, saveErr
			}
			return e.failed(action, models.ReasonLedgerFailure), nil
		}
	}

	pending, err := e.store.FindActions(ctx, store.ActionQuery{
		Kind:        models.KindTip,
		Status:      models.StatusPending,
		Destination: action.Source,
	})
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonNothingPending), nil
	}

	outcome := &models.Outcome{Kind: models.OutcomeCompleted, Action: action}
	for _, tip := range pending {
		if err := e.ledger.Move(ctx, models.EscrowAccount, tip.Destination, tip.Amount); err != nil {
			zap.L().Error("Escrow release failed, leaving remainder pending",
				zap.String("message_id", tip.MessageId),
				zap.String("destination", tip.Destination),
				zap.Error(err))
			outcome.Reason = models.ReasonLedgerFailure
			break
		}
		if err := e.store.SaveAction(ctx, tip, models.StatusCompleted); err != nil {
			return nil, err
		}
		tip.Status = models.StatusCompleted
		outcome.Settled = append(outcome.Settled, models.Outcome{Kind: models.OutcomeCompleted, Action: tip})

		zap.L().Info("Pending tip accepted",
			zap.String("message_id", tip.MessageId),
			zap.String("source", tip.Source),
			zap.String("destination", tip.Destination),
			zap.String("amount", tip.Amount.String()))
	}

	if len(outcome.Settled) == 0 {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonLedgerFailure), nil
	}

	if err := e.store.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		return nil, err
	}
	action.Status = models.StatusCompleted
	outcome.Action = action
	return outcome, nil
}

// executeDecline returns every pending tip addressed to the declining
// user back to its original source. Nothing goes to the decliner.
func (e *Engine) executeDecline(ctx context.Context, action models.Action) (*models.Outcome, error) {
	pending, err := e.store.FindActions(ctx, store.ActionQuery{
		Kind:        models.KindTip,
		Status:      models.StatusPending,
		Destination: action.Source,
	})
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonNothingPending), nil
	}

	outcome := &models.Outcome{Kind: models.OutcomeDeclined, Action: action}
	for _, tip := range pending {
		if err := e.ledger.Move(ctx, models.EscrowAccount, tip.Source, tip.Amount); err != nil {
			zap.L().Error("Escrow refund failed, leaving remainder pending",
				zap.String("message_id", tip.MessageId),
				zap.String("source", tip.Source),
				zap.Error(err))
			outcome.Reason = models.ReasonLedgerFailure
			break
		}
		if err := e.store.SaveAction(ctx, tip, models.StatusDeclined); err != nil {
			return nil, err
		}
		tip.Status = models.StatusDeclined
		outcome.Settled = append(outcome.Settled, models.Outcome{Kind: models.OutcomeDeclined, Action: tip})

		zap.L().Info("Pending tip declined",
			zap.String("message_id", tip.MessageId),
			zap.String("source", tip.Source),
			zap.String("amount", tip.Amount.String()))
	}

	if len(outcome.Settled) == 0 {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonLedgerFailure), nil
	}

	if err := e.store.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		return nil, err
	}
	action.Status = models.StatusCompleted
	outcome.Action = action
	return outcome, nil
}

// executeRegister creates the user and a fresh ledger address. The
// registry insert is atomic; no user-without-address can persist.
func (e *Engine) executeRegister(ctx context.Context, action models.Action) (*models.Outcome, error) {
	registered, err := e.store.IsRegistered(ctx, action.Source)
	if err != nil {
		return nil, err
	}
	if registered {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonAlreadyRegistered), nil
	}

	if err := e.registerUser(ctx, action.Source); err != nil {
		zap.L().Error("Registration failed",
			zap.String("username", action.Source),
			zap.Error(err))
		if saveErr := e.store.SaveAction(ctx, action, models.StatusFailed); saveErr != nil {
			return nil, saveErr
		}
		return e.failed(action, models.ReasonLedgerFailure), nil
	}

	address, err := e.store.UserAddress(ctx, action.Source)
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		return nil, err
	}
	action.Status = models.StatusCompleted
	return &models.Outcome{Kind: models.OutcomeCompleted, Action: action, Address: address}, nil
}

// registerUser generates a ledger address and inserts the user row and
// address row together.
func (e *Engine) registerUser(ctx context.Context, username string) error {
	address, err := e.ledger.NewAddress(ctx, username)
	if err != nil {
		return fmt.Errorf("generating address for %s: %w", username, err)
	}
	if err := e.store.RegisterUser(ctx, username, address); err != nil {
		return err
	}
	return nil
}

// executeInfo reports the source's balance and deposit address.
func (e *Engine) executeInfo(ctx context.Context, action models.Action) (*models.Outcome, error) {
	registered, err := e.store.IsRegistered(ctx, action.Source)
	if err != nil {
		return nil, err
	}
	if !registered {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonNotRegistered), nil
	}

	balance, err := e.ledger.Balance(ctx, action.Source, e.cfg.TipMinConf)
	if err != nil {
		return nil, fmt.Errorf("balance for %s: %w", action.Source, err)
	}
	address, err := e.store.UserAddress(ctx, action.Source)
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		return nil, err
	}
	action.Status = models.StatusCompleted
	return &models.Outcome{
		Kind:    models.OutcomeCompleted,
		Action:  action,
		Balance: balance,
		Address: address,
	}, nil
}

// executeHistory reports the source's recent recorded actions.
func (e *Engine) executeHistory(ctx context.Context, action models.Action) (*models.Outcome, error) {
	registered, err := e.store.IsRegistered(ctx, action.Source)
	if err != nil {
		return nil, err
	}
	if !registered {
		if err := e.store.SaveAction(ctx, action, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(action, models.ReasonNotRegistered), nil
	}

	history, err := e.store.UserHistory(ctx, action.Source, e.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		return nil, err
	}
	action.Status = models.StatusCompleted
	return &models.Outcome{Kind: models.OutcomeCompleted, Action: action, History: history}, nil
}
