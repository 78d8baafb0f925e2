package command

import (
	"testing"

	"github.com/shopspring/decimal"
)

func constants(t *testing.T, pairs map[string]string) map[string]decimal.Decimal {
	t.Helper()
	out := make(map[string]decimal.Decimal, len(pairs))
	for name, raw := range pairs {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			t.Fatalf("bad constant %s=%s: %v", name, raw, err)
		}
		out[name] = value
	}
	return out
}

func TestEvalExpression(t *testing.T) {
	consts := constants(t, map[string]string{"base": "0.5", "bonus": "2"})

	cases := []struct {
		expr string
		want string
	}{
		{"1", "1"},
		{"0.25", "0.25"},
		{"base", "0.5"},
		{"2 * base", "1"},
		{"base + bonus", "2.5"},
		{"(base + bonus) * 2", "5"},
		{"bonus / 4", "0.5"},
		{"-base + 1", "0.5"},
		{"10 - 2 * 3", "4"},
	}

	for _, tc := range cases {
		got, err := evalExpression(tc.expr, consts)
		if err != nil {
			t.Errorf("evalExpression(%q) failed: %v", tc.expr, err)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("evalExpression(%q) = %s, want %s", tc.expr, got, tc.want)
		}
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	consts := constants(t, map[string]string{"base": "0.5"})

	for _, expr := range []string{
		"",
		"base +",
		"(base",
		"1 / 0",
		"unknown * 2",
		"__import__",
		"1; 2",
		"base ** 2",
	} {
		if _, err := evalExpression(expr, consts); err == nil {
			t.Errorf("evalExpression(%q) should have failed", expr)
		}
	}
}
