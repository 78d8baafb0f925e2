package command

import (
	"testing"

	"cointip-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	builder, err := NewBuilder(DefaultCommandsConfig())
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return builder
}

func matchAndBuild(t *testing.T, msg models.InboundMessage) (models.Action, error) {
	t.Helper()
	table := testTable(t)
	rule, caps, ok := table.Match(msg)
	if !ok {
		t.Fatalf("no rule matched %q", msg.Body)
	}
	return testBuilder(t).Build(rule, caps, msg)
}

func TestBuildLiteralAmount(t *testing.T) {
	action, err := matchAndBuild(t, directMessage("m1", "Alice", "+tip bob 3.5"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if action.Kind != models.KindTip {
		t.Errorf("kind = %s, want tip", action.Kind)
	}
	if action.Source != "alice" {
		t.Errorf("source = %q, want alice (normalized)", action.Source)
	}
	if action.Destination != "bob" {
		t.Errorf("destination = %q, want bob", action.Destination)
	}
	if want, _ := decimal.NewFromString("3.5"); !action.Amount.Equal(want) {
		t.Errorf("amount = %s, want 3.5", action.Amount)
	}
	if action.MessageId != "m1" {
		t.Errorf("message id = %q, want m1", action.MessageId)
	}
}

func TestBuildKeywordAmount(t *testing.T) {
	action, err := matchAndBuild(t, directMessage("m2", "alice", "+tip bob beer"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// beer = 5 * base = 5 * 0.5
	if want, _ := decimal.NewFromString("2.5"); !action.Amount.Equal(want) {
		t.Errorf("amount = %s, want 2.5", action.Amount)
	}
}

func TestBuildWithdrawAddress(t *testing.T) {
	action, err := matchAndBuild(t, directMessage("m3", "alice", "+withdraw n4VQ5YdHf7hLQ2gWBYk9583QtNDP 2"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if action.Kind != models.KindWithdraw {
		t.Errorf("kind = %s, want withdraw", action.Kind)
	}
	if action.Address != "n4VQ5YdHf7hLQ2gWBYk9583QtNDP" {
		t.Errorf("address = %q", action.Address)
	}
	if action.Destination != "" {
		t.Errorf("destination = %q, want empty for address withdraw", action.Destination)
	}
}

func TestBuildNonMonetaryKind(t *testing.T) {
	action, err := matchAndBuild(t, directMessage("m4", "alice", "+register"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if action.Kind != models.KindRegister {
		t.Errorf("kind = %s, want register", action.Kind)
	}
	if !action.Amount.IsZero() {
		t.Errorf("amount = %s, want zero", action.Amount)
	}
}

func TestBuildRejectsUnknownKeyword(t *testing.T) {
	builder := testBuilder(t)
	rule := &Rule{Kind: models.KindTip, HasKeyword: true, HasDestination: true}
	caps := Captures{Keyword: "pizza", Destination: "bob"}

	_, err := builder.Build(rule, caps, directMessage("m5", "alice", "+tip bob pizza"))
	buildErr, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("expected a BuildError, got %v", err)
	}
	if buildErr.Reason != models.ReasonInvalidAmount {
		t.Errorf("reason = %s, want invalid_amount", buildErr.Reason)
	}
}

func TestBuildRejectsNonNumericAmount(t *testing.T) {
	builder := testBuilder(t)
	rule := &Rule{Kind: models.KindTip, HasAmount: true, HasDestination: true}
	caps := Captures{Amount: "1e9", Destination: "bob"}

	_, err := builder.Build(rule, caps, directMessage("m6", "alice", "+tip bob 1e9"))
	if _, ok := AsBuildError(err); !ok {
		t.Fatalf("expected a BuildError, got %v", err)
	}
}

func TestBuildRejectsMissingDestination(t *testing.T) {
	builder := testBuilder(t)
	rule := &Rule{Kind: models.KindTip, HasAmount: true}
	caps := Captures{Amount: "1"}

	_, err := builder.Build(rule, caps, directMessage("m7", "alice", "+tip 1"))
	buildErr, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("expected a BuildError, got %v", err)
	}
	if buildErr.Reason != models.ReasonInvalidDestination {
		t.Errorf("reason = %s, want invalid_destination", buildErr.Reason)
	}
}

func TestBuildRejectsNonPositiveKeywordValue(t *testing.T) {
	cfg := DefaultCommandsConfig()
	cfg.Keywords["nothing"] = "base - base"
	builder, err := NewBuilder(cfg)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	rule := &Rule{Kind: models.KindTip, HasKeyword: true, HasDestination: true}
	caps := Captures{Keyword: "nothing", Destination: "bob"}

	if _, err := builder.Build(rule, caps, directMessage("m8", "alice", "+tip bob nothing")); err == nil {
		t.Error("expected a build error for zero-valued keyword")
	}
}
