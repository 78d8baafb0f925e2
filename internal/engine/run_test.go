package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"cointip-engine-go/internal/models"
)

// sliceSource replays a fixed batch of messages, then reports EOF.
type sliceSource struct {
	msgs []models.InboundMessage
}

func (s *sliceSource) Next(_ context.Context) (models.InboundMessage, bool, error) {
	if len(s.msgs) == 0 {
		return models.InboundMessage{}, false, io.EOF
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, true, nil
}

func TestRunDrainsSource(t *testing.T) {
	env := setupEngine(t)
	env.registerUser(t, "alice", "10")
	env.registerUser(t, "bob", "0")

	source := &sliceSource{msgs: []models.InboundMessage{
		inbound("m1", "alice", "+tip bob 1"),
		inbound("m2", "someone", "not a command"),
		inbound("m3", "alice", "+info"),
	}}

	var outcomes []models.Outcome
	err := env.engine.Run(context.Background(), source, func(o models.Outcome) {
		outcomes = append(outcomes, o)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The tip and the info; the plain message produces nothing.
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].Action.MessageId != "m1" || outcomes[1].Action.MessageId != "m3" {
		t.Errorf("outcome order = [%s, %s], want [m1, m3]",
			outcomes[0].Action.MessageId, outcomes[1].Action.MessageId)
	}
}

// blockingSource never delivers; it behaves like a quiet mailbox.
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (models.InboundMessage, bool, error) {
	<-ctx.Done()
	return models.InboundMessage{}, false, ctx.Err()
}

func TestRunSweepsWhileSourceIdle(t *testing.T) {
	env := setupEngine(t)
	env.registerUser(t, "alice", "10")
	env.identity["carol"] = true

	stale := inbound("m1", "alice", "+tip carol 2")
	stale.CreatedAt = time.Now().UTC().Add(-80 * time.Hour)
	env.process(t, stale)

	env.engine.cfg.SweepInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan models.Outcome, 1)
	done := make(chan error, 1)
	go func() {
		done <- env.engine.Run(ctx, blockingSource{}, func(o models.Outcome) {
			select {
			case expired <- o:
			default:
			}
		})
	}()

	select {
	case outcome := <-expired:
		if outcome.Kind != models.OutcomeExpired {
			t.Errorf("outcome kind = %s, want expired", outcome.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run while the source was idle")
	}

	cancel()
	<-done

	env.assertStatus(t, "m1", models.StatusExpired)
	env.assertBalance(t, "alice", "10")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	env := setupEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.engine.Run(ctx, &sliceSource{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
