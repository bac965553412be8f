package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"scrap-ledger/internal/core"
	"scrap-ledger/internal/db"
	"scrap-ledger/internal/logger"
)

type Config struct {
	// Database
	DatabaseURL    string
	DBMaxConns     int32
	ConnectTimeout time.Duration

	// Ledger behaviour
	StoreTimeout         time.Duration
	AllowOverpayment     bool
	OverpaymentTolerance decimal.Decimal

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Call godotenv.Load
// first if a .env file should be honoured.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("LEDGER_STORE_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_STORE_TIMEOUT: %w", err)
	}
	allow, err := strconv.ParseBool(getEnv("LEDGER_ALLOW_OVERPAYMENT", "false"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_ALLOW_OVERPAYMENT: %w", err)
	}
	tolerance, err := decimal.NewFromString(getEnv("LEDGER_OVERPAYMENT_TOLERANCE", "0"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_OVERPAYMENT_TOLERANCE: %w", err)
	}

	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "0"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_CONNS: %w", err)
	}
	connectTimeout, err := time.ParseDuration(getEnv("DB_CONNECT_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("DB_CONNECT_TIMEOUT: %w", err)
	}

	config := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBMaxConns:           int32(maxConns),
		ConnectTimeout:       connectTimeout,
		StoreTimeout:         timeout,
		AllowOverpayment:     allow,
		OverpaymentTolerance: tolerance,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("LEDGER_STORE_TIMEOUT must be positive")
	}
	if c.DBMaxConns < 0 {
		return fmt.Errorf("DB_MAX_CONNS cannot be negative")
	}
	if c.OverpaymentTolerance.IsNegative() {
		return fmt.Errorf("LEDGER_OVERPAYMENT_TOLERANCE cannot be negative")
	}
	return nil
}

// RequireDatabase fails when no DATABASE_URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// PoolConfig returns the connection settings for db.NewPool.
func (c *Config) PoolConfig() db.PoolConfig {
	return db.PoolConfig{
		URL:            c.DatabaseURL,
		MaxConns:       c.DBMaxConns,
		ConnectTimeout: c.ConnectTimeout,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// LedgerOptions builds the service options this configuration describes.
func (c *Config) LedgerOptions() core.Options {
	return core.Options{
		Logger:       logger.WithComponent("ledger"),
		StoreTimeout: c.StoreTimeout,
		Overpayment: core.OverpaymentPolicy{
			Allow:     c.AllowOverpayment,
			Tolerance: c.OverpaymentTolerance,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
