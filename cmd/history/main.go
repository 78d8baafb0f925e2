package main

import (
	"context"
	"flag"
	"fmt"

	"cointip-engine-go/internal/common"
	"cointip-engine-go/internal/config"
	"cointip-engine-go/internal/models"

	"go.uber.org/zap"
)

func destinationOf(action models.Action) string {
	if action.Destination != "" {
		return action.Destination
	}
	if action.Address != "" {
		return action.Address
	}
	return "-"
}

func amountOf(action models.Action) string {
	if !action.Kind.Monetary() {
		return "-"
	}
	return action.Amount.String()
}

func main() {
	username := flag.String("user", "", "Username whose action history to print")
	limit := flag.Int("limit", 50, "Maximum number of actions to print")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *username == "" {
		zap.L().Fatal("Missing required -user argument")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	actions, err := dbService.UserHistory(ctx, *username, *limit)
	if err != nil {
		zap.L().Fatal("Failed to query history", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("Action History: %s", models.NormalizeUsername(*username)), common.DefaultWidth)
	fmt.Printf("%-19s  %-9s  %-10s  %-15s  %-15s  %12s\n",
		"TIME", "KIND", "STATUS", "SOURCE", "DESTINATION", "AMOUNT")
	for _, action := range actions {
		fmt.Printf("%-19s  %-9s  %-10s  %-15s  %-15s  %12s\n",
			action.MessageAt.Format("2006-01-02 15:04:05"),
			action.Kind,
			action.Status,
			action.Source,
			destinationOf(action),
			amountOf(action))
	}
	common.PrintFooter(fmt.Sprintf("%d actions", len(actions)), common.DefaultWidth)
}
