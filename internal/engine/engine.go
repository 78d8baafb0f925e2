package engine

import (
	"context"
	"fmt"
	"time"

	"cointip-engine-go/internal/command"
	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the external coin-custody capability the engine executes
// against. Calls are synchronous and fallible, and are not
// transactionally joined with the action store: the engine orders its
// reads and writes around that gap (dedup before any ledger call,
// idempotent store writes after).
type Ledger interface {
	Balance(ctx context.Context, account string, minConf int) (decimal.Decimal, error)
	Move(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error
	SendToAddress(ctx context.Context, fromAccount, address string, amount decimal.Decimal, minConf int) (string, error)
	ValidateAddress(ctx context.Context, address string) (bool, error)
	NewAddress(ctx context.Context, account string) (string, error)
}

// IdentityResolver answers whether a username is a real account on the
// platform. The transport collaborator owns the platform connection.
type IdentityResolver interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// balanceEpsilon absorbs daemon-side float rounding. Applied only at
// the final balance-sufficiency comparison, never to stored amounts.
var balanceEpsilon = decimal.New(1, -6)

// Engine turns delivered messages into validated, idempotent ledger
// actions. It assumes a single live instance: one message is fully
// processed before the next, and the expiry sweep interleaves with
// message processing rather than running concurrently.
type Engine struct {
	cfg      models.EngineConfig
	txFee    decimal.Decimal
	table    *command.Table
	builder  *command.Builder
	store    store.Store
	ledger   Ledger
	identity IdentityResolver
}

type Params struct {
	Config   models.EngineConfig
	TxFee    decimal.Decimal
	Table    *command.Table
	Builder  *command.Builder
	Store    store.Store
	Ledger   Ledger
	Identity IdentityResolver
}

func New(params Params) (*Engine, error) {
	if params.Table == nil || params.Builder == nil {
		return nil, fmt.Errorf("command table and builder are required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if params.Config.HistoryLimit <= 0 {
		params.Config.HistoryLimit = 50
	}
	if params.Config.SweepInterval <= 0 {
		params.Config.SweepInterval = 15 * time.Minute
	}

	return &Engine{
		cfg:      params.Config,
		txFee:    params.TxFee,
		table:    params.Table,
		builder:  params.Builder,
		store:    params.Store,
		ledger:   params.Ledger,
		identity: params.Identity,
	}, nil
}

// Process runs one delivered message through match, build, dedup,
// validate and execute. It returns nil when the message is not a
// command or is a replay of an already-recorded message. The duplicate
// check runs before any ledger call so a retried message cannot move
// funds twice.
func (e *Engine) Process(ctx context.Context, msg models.InboundMessage) (*models.Outcome, error) {
	rule, caps, ok := e.table.Match(msg)
	if !ok {
		return nil, nil
	}

	duplicate, err := e.store.ActionExists(ctx, store.ActionQuery{MessageId: msg.Id})
	if err != nil {
		return nil, fmt.Errorf("duplicate check for message %s: %w", msg.Id, err)
	}
	if duplicate {
		zap.L().Warn("Duplicate message, ignoring",
			zap.String("message_id", msg.Id),
			zap.String("kind", string(rule.Kind)))
		return nil, nil
	}

	action, err := e.builder.Build(rule, caps, msg)
	if err != nil {
		buildErr, ok := command.AsBuildError(err)
		if !ok {
			return nil, fmt.Errorf("building action for message %s: %w", msg.Id, err)
		}

		zap.L().Info("Command failed to build",
			zap.String("message_id", msg.Id),
			zap.String("kind", string(rule.Kind)),
			zap.String("reason", string(buildErr.Reason)),
			zap.Error(buildErr))

		failed := models.Action{
			Kind:      rule.Kind,
			Source:    models.NormalizeUsername(msg.Author),
			MessageId: msg.Id,
			MessageAt: msg.CreatedAt,
		}
		if err := e.store.SaveAction(ctx, failed, models.StatusFailed); err != nil {
			return nil, err
		}
		return e.failed(failed, buildErr.Reason), nil
	}

	zap.L().Info("Processing action",
		zap.String("message_id", action.MessageId),
		zap.String("kind", string(action.Kind)),
		zap.String("source", action.Source))

	return e.execute(ctx, action)
}

func (e *Engine) failed(action models.Action, reason models.RejectionReason) *models.Outcome {
	action.Status = models.StatusFailed
	return &models.Outcome{Kind: models.OutcomeFailed, Action: action, Reason: reason}
}
