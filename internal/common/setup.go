package common

import (
	"context"
	"log"
	"strings"

	"cointip-engine-go/internal/database"
	"cointip-engine-go/internal/models"
	"cointip-engine-go/internal/wallet"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via other means (shell
	// export, docker, etc.), so a missing .env is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService     *database.Service
	WalletService *wallet.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	walletService, err := wallet.NewService(cfg.Wallet)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	zap.L().Info("Connecting to wallet daemon", zap.String("url", cfg.Wallet.RPCURL))
	if err := walletService.Connect(ctx, cfg.Wallet.TxFee); err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService:     dbService,
		WalletService: walletService,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without
// the wallet daemon. Useful for read-only operations like history.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
