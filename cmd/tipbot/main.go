package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"cointip-engine-go/internal/command"
	"cointip-engine-go/internal/common"
	"cointip-engine-go/internal/config"
	"cointip-engine-go/internal/engine"
	"cointip-engine-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	commandsFile := flag.String("commands", "", "Optional path to commands.yaml overriding the COMMANDS_FILE setting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting tipping bot action engine")

	commandsPath := cfg.Engine.CommandsFile
	if *commandsFile != "" {
		commandsPath = *commandsFile
	}
	commandsCfg, err := loadCommands(commandsPath)
	if err != nil {
		zap.L().Fatal("Failed to load command configuration", zap.Error(err))
	}

	table, err := command.Compile(commandsCfg)
	if err != nil {
		zap.L().Fatal("Failed to compile command table", zap.Error(err))
	}
	builder, err := command.NewBuilder(commandsCfg)
	if err != nil {
		zap.L().Fatal("Failed to build command builder", zap.Error(err))
	}

	identity, err := newGrammarIdentity(commandsCfg)
	if err != nil {
		zap.L().Fatal("Failed to build identity resolver", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	eng, err := engine.New(engine.Params{
		Config:   cfg.Engine,
		TxFee:    cfg.Wallet.TxFee,
		Table:    table,
		Builder:  builder,
		Store:    services.DbService,
		Ledger:   services.WalletService,
		Identity: identity,
	})
	if err != nil {
		zap.L().Fatal("Failed to initialize engine", zap.Error(err))
	}

	if err := eng.SelfCheck(ctx); err != nil {
		zap.L().Fatal("Self-check failed, refusing to start", zap.Error(err))
	}

	// Shutdown on SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		zap.L().Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	source := newStdinSource(os.Stdin)
	handler := func(outcome models.Outcome) {
		zap.L().Info("Outcome",
			zap.String("kind", string(outcome.Kind)),
			zap.String("action", string(outcome.Action.Kind)),
			zap.String("message_id", outcome.Action.MessageId),
			zap.String("reason", string(outcome.Reason)),
			zap.Int("settled", len(outcome.Settled)))
	}

	if err := eng.Run(ctx, source, handler); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Fatal("Engine stopped with error", zap.Error(err))
	}

	zap.L().Info("Engine stopped")
}

func loadCommands(path string) (*command.CommandsConfig, error) {
	cfg, err := command.LoadCommandsConfig(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Info("No command file found, using built-in command set", zap.String("path", path))
		return command.DefaultCommandsConfig(), nil
	}
	return nil, err
}

// grammarIdentity accepts any destination matching the configured
// username grammar. Destinations inherited from a parent comment's
// author bypass the rule patterns, so this re-check is not redundant.
// A platform transport's own account resolver replaces this in a full
// deployment.
type grammarIdentity struct {
	pattern *regexp.Regexp
}

func newGrammarIdentity(cfg *command.CommandsConfig) (*grammarIdentity, error) {
	pattern, err := regexp.Compile("^(?i:" + cfg.Grammar.Username + ")$")
	if err != nil {
		return nil, fmt.Errorf("username grammar: %w", err)
	}
	return &grammarIdentity{pattern: pattern}, nil
}

func (g *grammarIdentity) Exists(_ context.Context, username string) (bool, error) {
	return g.pattern.MatchString(username), nil
}

// stdinSource reads one JSON-encoded InboundMessage per line. It is
// the development transport; a polling platform client implements the
// same MessageSource contract.
type stdinSource struct {
	scanner *bufio.Scanner
}

func newStdinSource(r io.Reader) *stdinSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &stdinSource{scanner: scanner}
}

func (s *stdinSource) Next(ctx context.Context) (models.InboundMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.InboundMessage{}, false, err
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return models.InboundMessage{}, false, err
		}
		return models.InboundMessage{}, false, io.EOF
	}

	line := s.scanner.Bytes()
	if len(line) == 0 {
		return models.InboundMessage{}, false, nil
	}

	var msg models.InboundMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		zap.L().Warn("Skipping malformed message line", zap.Error(err))
		return models.InboundMessage{}, false, nil
	}
	return msg, true, nil
}
