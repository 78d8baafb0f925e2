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

func main() {
	onlyUser := flag.String("user", "", "Optional username to limit the report to")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var usernames []string
	if *onlyUser != "" {
		usernames = []string{models.NormalizeUsername(*onlyUser)}
	} else {
		usernames, err = services.DbService.AllUsernames(ctx)
		if err != nil {
			zap.L().Fatal("Failed to list users", zap.Error(err))
		}
	}

	common.PrintHeader("User Balances", common.DefaultWidth)

	escrowBalance, err := services.WalletService.Balance(ctx, models.EscrowAccount, cfg.Engine.TipMinConf)
	if err != nil {
		zap.L().Fatal("Failed to get escrow balance", zap.Error(err))
	}
	fmt.Printf("%-22s %20s\n", "(escrow)", escrowBalance.String())

	for _, username := range usernames {
		balance, err := services.WalletService.Balance(ctx, username, cfg.Engine.TipMinConf)
		if err != nil {
			zap.L().Error("Failed to get balance",
				zap.String("username", username),
				zap.Error(err))
			continue
		}
		fmt.Printf("%-22s %20s\n", username, balance.String())
	}

	common.PrintFooter(fmt.Sprintf("%d users", len(usernames)), common.DefaultWidth)
}
