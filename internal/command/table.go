package command

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"cointip-engine-go/internal/models"

	"go.uber.org/zap"
)

// Rule is one compiled command pattern. Capture group presence is
// fixed at compile time; captures are read back by group name.
type Rule struct {
	Kind           models.ActionKind
	Pattern        *regexp.Regexp
	Scope          models.Scope // empty means both scopes
	Public         bool
	HasAmount      bool
	HasKeyword     bool
	HasAddress     bool
	HasDestination bool
}

// Captures holds the raw fields extracted by a rule match.
type Captures struct {
	Amount      string
	Keyword     string
	Address     string
	Destination string
}

// Table is the immutable, ordered rule set built once from
// configuration at startup. It is never mutated per message.
type Table struct {
	rules []Rule
}

const (
	groupAmount      = "amount"
	groupKeyword     = "keyword"
	groupAddress     = "address"
	groupDestination = "destination"
)

// Compile expands every rule template against the configured grammars
// and compiles the result case-insensitively with . matching newlines.
func Compile(cfg *CommandsConfig) (*Table, error) {
	if len(cfg.Grammar.Username) == 0 || len(cfg.Grammar.Address) == 0 || len(cfg.Grammar.Amount) == 0 {
		return nil, fmt.Errorf("command grammar is incomplete")
	}

	keywordAlternation := keywordPattern(cfg.Keywords)

	replacer := strings.NewReplacer(
		"{botname}", regexp.QuoteMeta(cfg.BotName),
		"{amount}", fmt.Sprintf("(?P<%s>%s)", groupAmount, cfg.Grammar.Amount),
		"{keyword}", fmt.Sprintf("(?P<%s>%s)", groupKeyword, keywordAlternation),
		"{address}", fmt.Sprintf("(?P<%s>%s)", groupAddress, cfg.Grammar.Address),
		"{destination}", fmt.Sprintf("(?P<%s>%s)", groupDestination, cfg.Grammar.Username),
	)

	rules := make([]Rule, 0, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		expanded := replacer.Replace(rc.Pattern)

		pattern, err := regexp.Compile("(?is)" + expanded)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): invalid pattern %q: %w", i, rc.Action, expanded, err)
		}

		rule := Rule{
			Kind:    models.ActionKind(rc.Action),
			Pattern: pattern,
			Scope:   models.Scope(rc.Scope),
			Public:  rc.Public,
		}
		for _, name := range pattern.SubexpNames() {
			switch name {
			case groupAmount:
				rule.HasAmount = true
			case groupKeyword:
				rule.HasKeyword = true
			case groupAddress:
				rule.HasAddress = true
			case groupDestination:
				rule.HasDestination = true
			}
		}

		switch rule.Kind {
		case models.KindTip, models.KindWithdraw, models.KindAccept, models.KindDecline,
			models.KindInfo, models.KindHistory, models.KindRegister:
		default:
			return nil, fmt.Errorf("rule %d: unknown action %q", i, rc.Action)
		}
		if rule.HasAddress && rule.HasDestination {
			return nil, fmt.Errorf("rule %d (%s): address and destination captures are mutually exclusive", i, rc.Action)
		}

		zap.L().Debug("Compiled command rule",
			zap.String("action", rc.Action),
			zap.String("pattern", pattern.String()))
		rules = append(rules, rule)
	}

	zap.L().Info("Command table compiled", zap.Int("rules", len(rules)))
	return &Table{rules: rules}, nil
}

// keywordPattern builds the keyword alternation from the configured
// table. Sorted for a stable pattern; empty table matches nothing.
func keywordPattern(keywords map[string]string) string {
	if len(keywords) == 0 {
		return `\b\B` // unmatchable
	}
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, regexp.QuoteMeta(name))
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// Match finds the first rule compatible with scope whose pattern
// matches body, returning the rule and its raw captures. Rules are
// tried in configuration order; there is no best-match scoring.
//
// A comment rule with no destination or address capture resolves the
// destination to the parent comment's author; when the parent author is
// unknown the command is treated as no match.
func (t *Table) Match(msg models.InboundMessage) (*Rule, Captures, bool) {
	scope := msg.Scope()

	for i := range t.rules {
		rule := &t.rules[i]

		if rule.Scope != "" && rule.Scope != scope {
			continue
		}
		if scope == models.ScopeComment && !rule.Public {
			continue
		}

		match := rule.Pattern.FindStringSubmatch(msg.Body)
		if match == nil {
			continue
		}

		var caps Captures
		for gi, name := range rule.Pattern.SubexpNames() {
			if gi == 0 || gi >= len(match) {
				continue
			}
			switch name {
			case groupAmount:
				caps.Amount = match[gi]
			case groupKeyword:
				caps.Keyword = match[gi]
			case groupAddress:
				caps.Address = match[gi]
			case groupDestination:
				caps.Destination = strings.TrimPrefix(match[gi], "@")
			}
		}

		if scope == models.ScopeComment && caps.Destination == "" && caps.Address == "" {
			if msg.ParentAuthor == "" {
				zap.L().Debug("Comment command without resolvable parent author, skipping",
					zap.String("message_id", msg.Id))
				return nil, Captures{}, false
			}
			caps.Destination = msg.ParentAuthor
		}

		// A comment tip aimed back at its own author is noise, not a
		// command; the validator rejects self-tips that get further.
		if scope == models.ScopeComment && caps.Destination != "" &&
			models.NormalizeUsername(caps.Destination) == models.NormalizeUsername(msg.Author) {
			zap.L().Debug("Comment command targets its own author, skipping",
				zap.String("message_id", msg.Id),
				zap.String("author", msg.Author))
			return nil, Captures{}, false
		}

		return rule, caps, true
	}

	return nil, Captures{}, false
}
