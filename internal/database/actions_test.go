package database

import (
	"context"
	"testing"
	"time"

	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/store"

	"github.com/shopspring/decimal"
)

func testTip(messageId, source, destination, amount string, at time.Time) models.Action {
	value, _ := decimal.NewFromString(amount)
	return models.Action{
		Kind:        models.KindTip,
		Amount:      value,
		Source:      source,
		Destination: destination,
		MessageId:   messageId,
		MessageAt:   at,
	}
}

func TestSaveActionUpsert(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	action := testTip("msg1", "alice", "bob", "3", now)

	if err := service.SaveAction(ctx, action, models.StatusPending); err != nil {
		t.Fatalf("SaveAction failed: %v", err)
	}
	// Re-saving the same message id overwrites, it does not duplicate.
	if err := service.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		t.Fatalf("second SaveAction failed: %v", err)
	}

	actions, err := service.FindActions(ctx, store.ActionQuery{MessageId: "msg1"})
	if err != nil {
		t.Fatalf("FindActions failed: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d rows for msg1, want 1", len(actions))
	}
	if actions[0].Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", actions[0].Status)
	}
	if want, _ := decimal.NewFromString("3"); !actions[0].Amount.Equal(want) {
		t.Errorf("amount = %s, want 3", actions[0].Amount)
	}
	if !actions[0].MessageAt.Equal(now) {
		t.Errorf("message_at = %v, want %v", actions[0].MessageAt, now)
	}
}

func TestActionExistsPredicates(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	if err := service.SaveAction(ctx, testTip("msg1", "alice", "carol", "5", now), models.StatusPending); err != nil {
		t.Fatalf("SaveAction failed: %v", err)
	}

	cases := []struct {
		name  string
		query store.ActionQuery
		want  bool
	}{
		{"by message id", store.ActionQuery{MessageId: "msg1"}, true},
		{"missing message id", store.ActionQuery{MessageId: "msg2"}, false},
		{"pending pair", store.ActionQuery{
			Kind: models.KindTip, Status: models.StatusPending,
			Source: "alice", Destination: "carol",
		}, true},
		{"pending pair, other source", store.ActionQuery{
			Kind: models.KindTip, Status: models.StatusPending,
			Source: "bob", Destination: "carol",
		}, false},
		{"normalizes usernames", store.ActionQuery{Source: "ALICE"}, true},
	}

	for _, tc := range cases {
		got, err := service.ActionExists(ctx, tc.query)
		if err != nil {
			t.Fatalf("%s: ActionExists failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFindActionsExpiryWindow(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	stale := testTip("old", "alice", "carol", "5", now.Add(-80*time.Hour))
	fresh := testTip("new", "alice", "dave", "2", now.Add(-1*time.Hour))
	settled := testTip("done", "alice", "erin", "1", now.Add(-90*time.Hour))

	if err := service.SaveAction(ctx, stale, models.StatusPending); err != nil {
		t.Fatal(err)
	}
	if err := service.SaveAction(ctx, fresh, models.StatusPending); err != nil {
		t.Fatal(err)
	}
	if err := service.SaveAction(ctx, settled, models.StatusCompleted); err != nil {
		t.Fatal(err)
	}

	candidates, err := service.FindActions(ctx, store.ActionQuery{
		Kind:          models.KindTip,
		Status:        models.StatusPending,
		CreatedBefore: now.Add(-72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("FindActions failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].MessageId != "old" {
		t.Errorf("candidate = %s, want old", candidates[0].MessageId)
	}
}

func TestFindActionsOrderedOldestFirst(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	if err := service.SaveAction(ctx, testTip("second", "a", "carol", "1", now.Add(-time.Hour)), models.StatusPending); err != nil {
		t.Fatal(err)
	}
	if err := service.SaveAction(ctx, testTip("first", "b", "carol", "2", now.Add(-2*time.Hour)), models.StatusPending); err != nil {
		t.Fatal(err)
	}

	actions, err := service.FindActions(ctx, store.ActionQuery{Destination: "carol"})
	if err != nil {
		t.Fatalf("FindActions failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].MessageId != "first" || actions[1].MessageId != "second" {
		t.Errorf("order = [%s, %s], want [first, second]", actions[0].MessageId, actions[1].MessageId)
	}
}

func TestSaveActionNonMonetaryAmountIsNull(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	action := models.Action{
		Kind:      models.KindRegister,
		Source:    "alice",
		MessageId: "reg1",
		MessageAt: time.Now(),
	}
	if err := service.SaveAction(ctx, action, models.StatusCompleted); err != nil {
		t.Fatalf("SaveAction failed: %v", err)
	}

	var amount any
	err := service.db.QueryRow("SELECT amount FROM actions WHERE message_id = ?", "reg1").Scan(&amount)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if amount != nil {
		t.Errorf("amount = %v, want NULL", amount)
	}
}

func TestUserHistory(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	if err := service.SaveAction(ctx, testTip("t1", "alice", "bob", "1", now.Add(-3*time.Hour)), models.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if err := service.SaveAction(ctx, testTip("t2", "bob", "alice", "2", now.Add(-2*time.Hour)), models.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if err := service.SaveAction(ctx, testTip("t3", "carol", "dave", "3", now.Add(-1*time.Hour)), models.StatusCompleted); err != nil {
		t.Fatal(err)
	}

	history, err := service.UserHistory(ctx, "Alice", 10)
	if err != nil {
		t.Fatalf("UserHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d entries, want 2", len(history))
	}
	// Newest first.
	if history[0].MessageId != "t2" || history[1].MessageId != "t1" {
		t.Errorf("order = [%s, %s], want [t2, t1]", history[0].MessageId, history[1].MessageId)
	}

	limited, err := service.UserHistory(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("UserHistory failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d entries with limit 1, want 1", len(limited))
	}
}
