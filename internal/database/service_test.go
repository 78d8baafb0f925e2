package database

import (
	"context"
	"testing"
	"time"

	"cointip-engine-go/internal/models"
)

// setupTestDB opens an in-memory database. A single connection keeps
// the :memory: database alive for the whole test.
func setupTestDB(t *testing.T) (*Service, func()) {
	t.Helper()

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return service, service.Close
}
