package command

import (
	"fmt"
	"os"
	"path/filepath"

	"cointip-engine-go/internal/models"

	"gopkg.in/yaml.v2"
)

// GrammarConfig holds the sub-expressions substituted into rule
// patterns. Each value is a plain regular expression fragment without
// capture groups; the compiler wraps it in a named group.
type GrammarConfig struct {
	Username string `yaml:"username"`
	Address  string `yaml:"address"`
	Amount   string `yaml:"amount"`
}

// RuleConfig defines one command pattern template. Placeholders
// {botname}, {amount}, {keyword}, {address} and {destination} expand to
// the configured grammars before compilation.
type RuleConfig struct {
	Action  string `yaml:"action"`
	Pattern string `yaml:"pattern"`
	Scope   string `yaml:"scope"`  // "message", "comment" or "" for both
	Public  bool   `yaml:"public"` // required for comment matches
}

// CommandsConfig is the full command file: the bot's trigger name, the
// pattern grammars, the ordered rule list, the keyword->value table and
// the named constants keyword expressions may reference.
type CommandsConfig struct {
	BotName   string            `yaml:"bot_name"`
	Grammar   GrammarConfig     `yaml:"grammar"`
	Rules     []RuleConfig      `yaml:"rules"`
	Keywords  map[string]string `yaml:"keywords"`
	Constants map[string]string `yaml:"constants"`
}

func LoadCommandsConfig(commandsFile string) (*CommandsConfig, error) {
	var commandsPath string
	if filepath.IsAbs(commandsFile) {
		commandsPath = commandsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		commandsPath = filepath.Join(wd, commandsFile)
	}

	data, err := os.ReadFile(commandsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", commandsFile, err)
	}

	var config CommandsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", commandsFile, err)
	}

	if config.BotName == "" {
		return nil, fmt.Errorf("%s: bot_name is required", commandsFile)
	}
	if len(config.Rules) == 0 {
		return nil, fmt.Errorf("%s: at least one rule is required", commandsFile)
	}
	for i, rule := range config.Rules {
		if rule.Action == "" {
			return nil, fmt.Errorf("%s: rule at index %d missing action", commandsFile, i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("%s: rule at index %d missing pattern", commandsFile, i)
		}
		switch models.Scope(rule.Scope) {
		case models.ScopeMessage, models.ScopeComment, "":
		default:
			return nil, fmt.Errorf("%s: rule at index %d has unknown scope %q", commandsFile, i, rule.Scope)
		}
	}

	return &config, nil
}

// DefaultCommandsConfig returns the built-in command set: the classic
// "+tip @user 1.5" comment grammar plus direct-message commands.
func DefaultCommandsConfig() *CommandsConfig {
	return &CommandsConfig{
		BotName: "cointipbot",
		Grammar: GrammarConfig{
			Username: `@?[A-Za-z0-9_-]{3,20}`,
			Address:  `[A-Za-z0-9]{26,35}`,
			Amount:   `[0-9]{1,9}(?:\.[0-9]{1,8})?`,
		},
		Rules: []RuleConfig{
			{Action: "tip", Pattern: `\+{botname}\s+{destination}\s+(?:{amount}|{keyword})`, Scope: "comment", Public: true},
			{Action: "tip", Pattern: `\+{botname}\s+(?:{amount}|{keyword})`, Scope: "comment", Public: true},
			{Action: "tip", Pattern: `\+tip\s+{destination}\s+(?:{amount}|{keyword})`, Scope: "", Public: true},
			{Action: "withdraw", Pattern: `\+withdraw\s+{address}\s+{amount}`, Scope: "message"},
			{Action: "accept", Pattern: `\+accept`, Scope: "message"},
			{Action: "decline", Pattern: `\+decline`, Scope: "message"},
			{Action: "info", Pattern: `\+info`, Scope: "message"},
			{Action: "history", Pattern: `\+history`, Scope: "message"},
			{Action: "register", Pattern: `\+register`, Scope: "message"},
		},
		Keywords: map[string]string{
			"upvote": "base",
			"coffee": "2 * base",
			"beer":   "5 * base",
		},
		Constants: map[string]string{
			"base": "0.5",
		},
	}
}
