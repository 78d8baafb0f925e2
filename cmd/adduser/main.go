package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"

	"cointip-engine-go/internal/common"
	"cointip-engine-go/internal/config"
	"cointip-engine-go/internal/models"

	"go.uber.org/zap"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("invalid username: %s", username)
	}
	return nil
}

func main() {
	username := flag.String("user", "", "Platform username to register")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := validateUsername(*username); err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

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

	name := models.NormalizeUsername(*username)

	registered, err := services.DbService.IsRegistered(ctx, name)
	if err != nil {
		zap.L().Fatal("Failed to check registration", zap.Error(err))
	}
	if registered {
		zap.L().Fatal("User already registered", zap.String("username", name))
	}

	address, err := services.WalletService.NewAddress(ctx, name)
	if err != nil {
		zap.L().Fatal("Failed to generate address", zap.Error(err))
	}

	if err := services.DbService.RegisterUser(ctx, name, address); err != nil {
		zap.L().Fatal("Failed to register user", zap.Error(err))
	}

	common.PrintHeader("User Registered", common.DefaultWidth)
	fmt.Printf("Username: %s\n", name)
	fmt.Printf("Address:  %s\n", address)
	common.PrintFooter("Done", common.DefaultWidth)
}
