package command

import (
	"testing"
	"time"

	"cointip-engine-go/internal/models"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := Compile(DefaultCommandsConfig())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return table
}

func directMessage(id, author, body string) models.InboundMessage {
	return models.InboundMessage{
		Id:        id,
		Body:      body,
		Author:    author,
		CreatedAt: time.Now(),
	}
}

func comment(id, author, parent, body string) models.InboundMessage {
	return models.InboundMessage{
		Id:           id,
		Body:         body,
		Author:       author,
		CreatedAt:    time.Now(),
		IsReply:      true,
		ParentAuthor: parent,
	}
}

func TestMatchTipWithDestination(t *testing.T) {
	table := testTable(t)

	rule, caps, ok := table.Match(directMessage("m1", "alice", "+tip bob 3.5"))
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Kind != models.KindTip {
		t.Errorf("kind = %s, want tip", rule.Kind)
	}
	if caps.Destination != "bob" {
		t.Errorf("destination = %q, want bob", caps.Destination)
	}
	if caps.Amount != "3.5" {
		t.Errorf("amount = %q, want 3.5", caps.Amount)
	}
}

func TestMatchStripsUsernamePrefix(t *testing.T) {
	table := testTable(t)

	_, caps, ok := table.Match(comment("m2", "alice", "carol", "+cointipbot @bob 5"))
	if !ok {
		t.Fatal("expected a match")
	}
	if caps.Destination != "bob" {
		t.Errorf("destination = %q, want bob", caps.Destination)
	}
}

func TestMatchKeywordAmount(t *testing.T) {
	table := testTable(t)

	_, caps, ok := table.Match(directMessage("m3", "alice", "+tip bob beer"))
	if !ok {
		t.Fatal("expected a match")
	}
	if caps.Keyword != "beer" {
		t.Errorf("keyword = %q, want beer", caps.Keyword)
	}
	if caps.Amount != "" {
		t.Errorf("amount = %q, want empty", caps.Amount)
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	table := testTable(t)

	rule, _, ok := table.Match(directMessage("m4", "alice", "+TIP Bob 1"))
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Kind != models.KindTip {
		t.Errorf("kind = %s, want tip", rule.Kind)
	}
}

func TestMatchScopeRestriction(t *testing.T) {
	table := testTable(t)

	// withdraw is a direct-message command; the same text in a comment
	// must not match.
	if _, _, ok := table.Match(directMessage("m5", "alice", "+withdraw n4VQ5YdHf7hLQ2gWBYk9583QtNDP 2")); !ok {
		t.Error("withdraw should match in a direct message")
	}
	if _, _, ok := table.Match(comment("m6", "alice", "carol", "+withdraw n4VQ5YdHf7hLQ2gWBYk9583QtNDP 2")); ok {
		t.Error("withdraw should not match in a comment")
	}
}

func TestMatchParentAuthorInheritance(t *testing.T) {
	table := testTable(t)

	// "+cointipbot 5" names no destination; a reply inherits the
	// parent comment's author.
	_, caps, ok := table.Match(comment("m7", "alice", "carol", "+cointipbot 5"))
	if !ok {
		t.Fatal("expected a match")
	}
	if caps.Destination != "carol" {
		t.Errorf("destination = %q, want carol", caps.Destination)
	}

	// Without a resolvable parent the command is a no-match, not an
	// error.
	if _, _, ok := table.Match(comment("m8", "alice", "", "+cointipbot 5")); ok {
		t.Error("expected no match when parent author is unknown")
	}
}

func TestMatchSelfDirectedCommentDropped(t *testing.T) {
	table := testTable(t)

	if _, _, ok := table.Match(comment("m9", "alice", "bob", "+cointipbot @Alice 5")); ok {
		t.Error("comment tip aimed at its own author should not match")
	}
	if _, _, ok := table.Match(comment("m10", "alice", "alice", "+cointipbot 5")); ok {
		t.Error("reply to own comment should not match")
	}
}

func TestMatchNonCommand(t *testing.T) {
	table := testTable(t)

	if _, _, ok := table.Match(directMessage("m11", "alice", "hello there")); ok {
		t.Error("plain text should not match")
	}
}

func TestMatchFirstRuleWins(t *testing.T) {
	table := testTable(t)

	// Both the destination rule and the parent-author rule could apply
	// to a comment naming a destination; configuration order decides.
	_, caps, ok := table.Match(comment("m12", "alice", "carol", "+cointipbot @bob 5"))
	if !ok {
		t.Fatal("expected a match")
	}
	if caps.Destination != "bob" {
		t.Errorf("destination = %q, want bob (explicit beats parent)", caps.Destination)
	}
}

func TestCompileRejectsUnknownAction(t *testing.T) {
	cfg := DefaultCommandsConfig()
	cfg.Rules = append(cfg.Rules, RuleConfig{Action: "teleport", Pattern: `\+teleport`})
	if _, err := Compile(cfg); err == nil {
		t.Error("expected an error for unknown action")
	}
}

func TestCompileRejectsBadPattern(t *testing.T) {
	cfg := DefaultCommandsConfig()
	cfg.Rules = append(cfg.Rules, RuleConfig{Action: "info", Pattern: `(`})
	if _, err := Compile(cfg); err == nil {
		t.Error("expected an error for invalid pattern")
	}
}
