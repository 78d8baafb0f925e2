package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cointip-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("WALLET_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	txFee, err := getEnvDecimal("WALLET_TX_FEE", "0.01")
	if err != nil {
		return nil, err
	}

	tipMinimum, err := getEnvDecimal("ENGINE_TIP_MINIMUM", "0.1")
	if err != nil {
		return nil, err
	}

	withdrawMinimum, err := getEnvDecimal("ENGINE_WITHDRAW_MINIMUM", "1")
	if err != nil {
		return nil, err
	}

	pendingExpiry, err := getEnvDuration("ENGINE_PENDING_EXPIRY", 72*time.Hour)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("ENGINE_SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "cointip.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Wallet: models.WalletConfig{
			RPCURL:         getEnvString("WALLET_RPC_URL", "http://127.0.0.1:8332"),
			RPCUser:        getEnvString("WALLET_RPC_USER", ""),
			RPCPassword:    getEnvString("WALLET_RPC_PASSWORD", ""),
			RequestTimeout: requestTimeout,
			TxFee:          txFee,
		},
		Engine: models.EngineConfig{
			TipMinimum:      tipMinimum,
			WithdrawMinimum: withdrawMinimum,
			TipMinConf:      getEnvInt("ENGINE_TIP_MINCONF", 1),
			WithdrawMinConf: getEnvInt("ENGINE_WITHDRAW_MINCONF", 6),
			PendingExpiry:   pendingExpiry,
			SweepInterval:   sweepInterval,
			HistoryLimit:    getEnvInt("ENGINE_HISTORY_LIMIT", 50),
			CommandsFile:    getEnvString("COMMANDS_FILE", "commands.yaml"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
