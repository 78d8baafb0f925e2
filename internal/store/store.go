package store

import (
	"context"
	"errors"
	"time"

	"cointip-engine-go/internal/models"
)

// Sentinel errors shared across backend implementations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already registered")
	ErrAddressNotFound = errors.New("no address for user")
)

// ActionQuery is a predicate conjunction over action attributes; zero
// fields are ignored. CreatedBefore compares the message timestamp.
type ActionQuery struct {
	Kind          models.ActionKind
	Status        models.ActionStatus
	Source        string
	Destination   string
	MessageId     string
	CreatedBefore time.Time
}

// ActionStore records action outcomes and answers predicate queries
// over them. SaveAction upserts keyed by message id: replaying the same
// message overwrites its row, it never duplicates. The store is
// best-effort bookkeeping alongside the external ledger, not a
// two-phase commit with it; dedup checks must therefore run before any
// ledger call.
type ActionStore interface {
	SaveAction(ctx context.Context, action models.Action, status models.ActionStatus) error
	ActionExists(ctx context.Context, query ActionQuery) (bool, error)
	FindActions(ctx context.Context, query ActionQuery) ([]models.Action, error)
	UserHistory(ctx context.Context, username string, limit int) ([]models.Action, error)
}

// UserRegistry tracks registered users and their ledger addresses.
// RegisterUser inserts the user row and the address row atomically; a
// partial insert must be rolled back so no user-without-address exists.
type UserRegistry interface {
	IsRegistered(ctx context.Context, username string) (bool, error)
	RegisterUser(ctx context.Context, username, address string) error
	UserAddress(ctx context.Context, username string) (string, error)
	AllUsernames(ctx context.Context) ([]string, error)
}

// Store is the full persistence contract the engine depends on.
type Store interface {
	ActionStore
	UserRegistry
	Close()
}
