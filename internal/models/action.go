package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActionKind identifies what a parsed command asks the engine to do.
type ActionKind string

const (
	KindTip      ActionKind = "tip"
	KindWithdraw ActionKind = "withdraw"
	KindAccept   ActionKind = "accept"
	KindDecline  ActionKind = "decline"
	KindInfo     ActionKind = "info"
	KindHistory  ActionKind = "history"
	KindRegister ActionKind = "register"
)

// Monetary reports whether the kind carries an amount.
func (k ActionKind) Monetary() bool {
	return k == KindTip || k == KindWithdraw
}

// ActionStatus is the persisted lifecycle state of an action.
type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusCompleted ActionStatus = "completed"
	StatusFailed    ActionStatus = "failed"
	StatusDeclined  ActionStatus = "declined"
	StatusExpired   ActionStatus = "expired"
)

// EscrowAccount is the bot's own ledger identity, used to hold tips to
// unregistered recipients. The colon keeps it outside the platform
// username grammar so it can never collide with a real user.
const EscrowAccount = "cointip:escrow"

// NormalizeUsername lowercases a platform username; usernames compare
// case-insensitively everywhere in the engine and the store.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Action represents one command's lifecycle, from parsed intent to
// terminal outcome. Destination and Address are mutually exclusive;
// Amount is zero for non-monetary kinds.
type Action struct {
	Kind        ActionKind      `db:"kind"`
	Amount      decimal.Decimal `db:"amount"`
	Source      string          `db:"source"`
	Destination string          `db:"destination"`
	Address     string          `db:"address"`
	MessageId   string          `db:"message_id"`
	MessageAt   time.Time       `db:"message_at"`
	Status      ActionStatus    `db:"status"`
	TxId        string          `db:"tx_id"`
	CreatedAt   time.Time       `db:"created_at"`
}
