package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaveAction upserts the action keyed by its message id. Re-recording
// the same message overwrites the existing row; exactly one row exists
// per message id regardless of retries.
func (s *Service) SaveAction(ctx context.Context, action models.Action, status models.ActionStatus) error {
	if action.MessageId == "" {
		return fmt.Errorf("action has no message id")
	}

	var amount sql.NullString
	if action.Kind.Monetary() {
		amount = sql.NullString{String: action.Amount.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, queryUpsertAction,
		action.MessageId,
		string(action.Kind),
		string(status),
		amount,
		action.Source,
		nullString(action.Destination),
		nullString(action.Address),
		nullString(action.TxId),
		action.MessageAt.Unix(),
	)
	if err != nil {
		zap.L().Error("Failed to save action",
			zap.String("message_id", action.MessageId),
			zap.String("kind", string(action.Kind)),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("unable to save action %s: %w", action.MessageId, err)
	}

	zap.L().Debug("Action saved",
		zap.String("message_id", action.MessageId),
		zap.String("kind", string(action.Kind)),
		zap.String("status", string(status)))
	return nil
}

// ActionExists reports whether any action matches the query.
func (s *Service) ActionExists(ctx context.Context, query store.ActionQuery) (bool, error) {
	where, args := buildActionWhere(query)

	var one int
	err := s.db.QueryRowContext(ctx, queryActionExists+where+" LIMIT 1", args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to check action existence: %w", err)
	}
	return true, nil
}

// FindActions returns all actions matching the query, oldest first.
func (s *Service) FindActions(ctx context.Context, query store.ActionQuery) ([]models.Action, error) {
	where, args := buildActionWhere(query)

	rows, err := s.db.QueryContext(ctx, querySelectActions+where+" ORDER BY message_at", args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query actions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return scanActions(rows)
}

// UserHistory returns the user's most recent actions, as source or
// destination, newest first.
func (s *Service) UserHistory(ctx context.Context, username string, limit int) ([]models.Action, error) {
	username = models.NormalizeUsername(username)

	rows, err := s.db.QueryContext(ctx, queryUserHistory, username, username, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query history for %s: %w", username, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return scanActions(rows)
}

func buildActionWhere(query store.ActionQuery) (string, []any) {
	var terms []string
	var args []any

	if query.Kind != "" {
		terms = append(terms, "kind = ?")
		args = append(args, string(query.Kind))
	}
	if query.Status != "" {
		terms = append(terms, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.Source != "" {
		terms = append(terms, "source = ?")
		args = append(args, models.NormalizeUsername(query.Source))
	}
	if query.Destination != "" {
		terms = append(terms, "destination = ?")
		args = append(args, models.NormalizeUsername(query.Destination))
	}
	if query.MessageId != "" {
		terms = append(terms, "message_id = ?")
		args = append(args, query.MessageId)
	}
	if !query.CreatedBefore.IsZero() {
		terms = append(terms, "message_at < ?")
		args = append(args, query.CreatedBefore.Unix())
	}

	if len(terms) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(terms, " AND "), args
}

func scanActions(rows *sql.Rows) ([]models.Action, error) {
	var actions []models.Action
	for rows.Next() {
		var (
			action      models.Action
			kind        string
			status      string
			amount      sql.NullString
			destination sql.NullString
			address     sql.NullString
			txId        sql.NullString
			messageAt   int64
		)
		err := rows.Scan(&action.MessageId, &kind, &status, &amount,
			&action.Source, &destination, &address, &txId, &messageAt, &action.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan action row: %w", err)
		}

		action.Kind = models.ActionKind(kind)
		action.Status = models.ActionStatus(status)
		action.Destination = destination.String
		action.Address = address.String
		action.TxId = txId.String
		action.MessageAt = time.Unix(messageAt, 0).UTC()

		if amount.Valid {
			value, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("invalid stored amount %q for %s: %w", amount.String, action.MessageId, err)
			}
			action.Amount = value
		}

		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action rows: %w", err)
	}
	return actions, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
