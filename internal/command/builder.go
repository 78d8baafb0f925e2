package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cointip-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

// BuildError is a parse-stage failure: the message matched a rule but
// its captures do not form a well-formed action.
type BuildError struct {
	Reason models.RejectionReason
	msg    string
}

func (e *BuildError) Error() string { return e.msg }

func buildErrorf(reason models.RejectionReason, format string, args ...any) *BuildError {
	return &BuildError{Reason: reason, msg: fmt.Sprintf(format, args...)}
}

// AsBuildError unwraps a BuildError from err, if there is one.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	ok := errors.As(err, &be)
	return be, ok
}

var numericAmount = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?$`)

// Builder resolves raw captures into typed actions. Keyword values are
// either decimal literals or arithmetic expressions over the configured
// constants; constants are parsed once at construction.
type Builder struct {
	keywords  map[string]string
	constants map[string]decimal.Decimal
}

func NewBuilder(cfg *CommandsConfig) (*Builder, error) {
	constants := make(map[string]decimal.Decimal, len(cfg.Constants))
	for name, raw := range cfg.Constants {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("constant %q: invalid decimal %q: %w", name, raw, err)
		}
		constants[strings.ToLower(name)] = value
	}

	keywords := make(map[string]string, len(cfg.Keywords))
	for name, value := range cfg.Keywords {
		keywords[strings.ToLower(name)] = value
	}

	return &Builder{keywords: keywords, constants: constants}, nil
}

// Build resolves captures into an Action. It is a pure parse step:
// source/destination equality and everything needing ledger or store
// state is the validator's job.
func (b *Builder) Build(rule *Rule, caps Captures, msg models.InboundMessage) (models.Action, error) {
	action := models.Action{
		Kind:      rule.Kind,
		Source:    models.NormalizeUsername(msg.Author),
		MessageId: msg.Id,
		MessageAt: msg.CreatedAt,
	}

	if caps.Destination != "" {
		action.Destination = models.NormalizeUsername(caps.Destination)
	}
	action.Address = caps.Address

	if !rule.Kind.Monetary() {
		return action, nil
	}

	switch {
	case caps.Amount != "" && caps.Keyword != "":
		return models.Action{}, buildErrorf(models.ReasonInvalidAmount,
			"message %s: amount and keyword are mutually exclusive", msg.Id)

	case caps.Amount != "":
		if !numericAmount.MatchString(caps.Amount) {
			return models.Action{}, buildErrorf(models.ReasonInvalidAmount,
				"message %s: amount %q is not numeric", msg.Id, caps.Amount)
		}
		amount, err := decimal.NewFromString(caps.Amount)
		if err != nil {
			return models.Action{}, buildErrorf(models.ReasonInvalidAmount,
				"message %s: amount %q: %v", msg.Id, caps.Amount, err)
		}
		action.Amount = amount

	case caps.Keyword != "":
		amount, err := b.resolveKeyword(caps.Keyword)
		if err != nil {
			return models.Action{}, buildErrorf(models.ReasonInvalidAmount,
				"message %s: keyword %q: %v", msg.Id, caps.Keyword, err)
		}
		action.Amount = amount

	default:
		return models.Action{}, buildErrorf(models.ReasonInvalidAmount,
			"message %s: %s requires an amount or keyword", msg.Id, rule.Kind)
	}

	if !action.Amount.IsPositive() {
		return models.Action{}, buildErrorf(models.ReasonInvalidAmount,
			"message %s: amount %s is not positive", msg.Id, action.Amount)
	}

	if action.Destination == "" && action.Address == "" {
		return models.Action{}, buildErrorf(models.ReasonInvalidDestination,
			"message %s: %s requires a destination", msg.Id, rule.Kind)
	}
	if action.Destination != "" && action.Address != "" {
		return models.Action{}, buildErrorf(models.ReasonInvalidDestination,
			"message %s: destination and address are mutually exclusive", msg.Id)
	}

	return action, nil
}

func (b *Builder) resolveKeyword(keyword string) (decimal.Decimal, error) {
	expr, ok := b.keywords[strings.ToLower(keyword)]
	if !ok {
		return decimal.Zero, fmt.Errorf("not configured")
	}

	if numericAmount.MatchString(expr) {
		return decimal.NewFromString(expr)
	}

	value, err := evalExpression(expr, b.constants)
	if err != nil {
		return decimal.Zero, fmt.Errorf("evaluating %q: %w", expr, err)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%q evaluates to non-positive %s", expr, value)
	}
	return value, nil
}
