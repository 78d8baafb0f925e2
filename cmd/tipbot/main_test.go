package main

import (
	"context"
	"testing"

	"cointip-engine-go/internal/command"
)

func TestGrammarIdentity(t *testing.T) {
	identity, err := newGrammarIdentity(command.DefaultCommandsConfig())
	if err != nil {
		t.Fatalf("newGrammarIdentity failed: %v", err)
	}

	cases := []struct {
		username string
		want     bool
	}{
		{"bob", true},
		{"Some_User-99", true},
		{"ab", false},
		{"[deleted]", false}, // inherited parent author of a removed account
		{"a-username-well-over-twenty-chars", false},
	}

	for _, tc := range cases {
		got, err := identity.Exists(context.Background(), tc.username)
		if err != nil {
			t.Fatalf("Exists(%q) failed: %v", tc.username, err)
		}
		if got != tc.want {
			t.Errorf("Exists(%q) = %v, want %v", tc.username, got, tc.want)
		}
	}
}
