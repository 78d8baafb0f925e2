package models

import "github.com/shopspring/decimal"

// OutcomeKind classifies what happened to a processed message.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomePending   OutcomeKind = "pending"
	OutcomeDeclined  OutcomeKind = "declined"
	OutcomeExpired   OutcomeKind = "expired"
	OutcomeFailed    OutcomeKind = "failed"
)

// RejectionReason is a user-caused, terminal validation failure. The
// notification collaborator turns these into prose; the engine never
// formats user-facing text.
type RejectionReason string

const (
	ReasonNotRegistered       RejectionReason = "not_registered"
	ReasonInvalidAmount       RejectionReason = "invalid_amount"
	ReasonBelowMinimum        RejectionReason = "below_minimum"
	ReasonInsufficientBalance RejectionReason = "insufficient_balance"
	ReasonSelfTip             RejectionReason = "self_tip"
	ReasonInvalidDestination  RejectionReason = "invalid_destination"
	ReasonDuplicatePending    RejectionReason = "duplicate_pending"
	ReasonInvalidAddress      RejectionReason = "invalid_address"
	ReasonNothingPending      RejectionReason = "nothing_pending"
	ReasonAlreadyRegistered   RejectionReason = "already_registered"
	ReasonLedgerFailure       RejectionReason = "ledger_failure"
)

// Outcome is the structured result handed to the notification
// collaborator. Settled carries the per-item results of an
// accept/decline batch; Balance and Address are set for info outcomes;
// History is set for history outcomes.
type Outcome struct {
	Kind    OutcomeKind
	Action  Action
	Reason  RejectionReason
	Balance decimal.Decimal
	Address string
	Settled []Outcome
	History []Action
}
