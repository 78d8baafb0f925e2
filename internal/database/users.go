package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// IsRegistered reports whether the user exists with a complete
// registration. A user row without its address row means the process
// died mid-registration; the orphan row is deleted and the user is
// reported unregistered so a retry starts clean.
func (s *Service) IsRegistered(ctx context.Context, username string) (bool, error) {
	username = models.NormalizeUsername(username)

	var user models.User
	err := s.db.QueryRowContext(ctx, queryGetUserByName, username).Scan(
		&user.Id, &user.Username, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to query user %s: %w", username, err)
	}

	var addressCount int
	if err := s.db.QueryRowContext(ctx, queryCountUserAddresses, username).Scan(&addressCount); err != nil {
		return false, fmt.Errorf("unable to count addresses for %s: %w", username, err)
	}

	switch addressCount {
	case 1:
		return true, nil
	case 0:
		zap.L().Warn("Deleting user with incomplete registration", zap.String("username", username))
		if _, err := s.db.ExecContext(ctx, queryDeleteUser, username); err != nil {
			return false, fmt.Errorf("unable to delete incomplete user %s: %w", username, err)
		}
		return false, nil
	default:
		return false, fmt.Errorf("user %s has %d addresses, expected 1", username, addressCount)
	}
}

// RegisterUser inserts the user row and its address row in one
// transaction. Either both exist afterwards or neither does.
func (s *Service) RegisterUser(ctx context.Context, username, address string) error {
	username = models.NormalizeUsername(username)
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back registration", zap.Error(err))
		}
	}()

	if _, err := tx.ExecContext(ctx, queryInsertUser, uuid.New().String(), username); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrUserExists, username)
		}
		return fmt.Errorf("unable to insert user %s: %w", username, err)
	}

	if _, err := tx.ExecContext(ctx, queryInsertAddress, uuid.New().String(), username, address); err != nil {
		return fmt.Errorf("unable to insert address for %s: %w", username, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit registration for %s: %w", username, err)
	}

	zap.L().Info("User registered",
		zap.String("username", username),
		zap.String("address", address))
	return nil
}

// UserAddress returns the user's ledger address.
func (s *Service) UserAddress(ctx context.Context, username string) (string, error) {
	username = models.NormalizeUsername(username)

	var address string
	err := s.db.QueryRowContext(ctx, queryGetUserAddress, username).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", store.ErrAddressNotFound, username)
	}
	if err != nil {
		return "", fmt.Errorf("unable to query address for %s: %w", username, err)
	}
	return address, nil
}

// AllUsernames returns every registered username, for self-checks.
func (s *Service) AllUsernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryAllUsernames)
	if err != nil {
		return nil, fmt.Errorf("unable to query usernames: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("unable to scan username: %w", err)
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usernames: %w", err)
	}
	return usernames, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
