package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Wallet   WalletConfig
	Engine   EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// WalletConfig holds coin-daemon RPC settings
type WalletConfig struct {
	RPCURL         string
	RPCUser        string
	RPCPassword    string
	RequestTimeout time.Duration
	TxFee          decimal.Decimal
}

// EngineConfig holds action-engine settings
type EngineConfig struct {
	TipMinimum      decimal.Decimal
	WithdrawMinimum decimal.Decimal
	TipMinConf      int
	WithdrawMinConf int
	PendingExpiry   time.Duration
	SweepInterval   time.Duration
	HistoryLimit    int
	CommandsFile    string
}
