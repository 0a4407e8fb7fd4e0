// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string  // Base directory for databases and input files (always absolute)
	ActivityDir     string  // Directory containing brokerage activity CSV exports
	PositionsFile   string  // Present-day positions CSV (ground truth holdings)
	BenchmarkSymbol string  // Benchmark proxy for risk metrics and attribution
	CashSweepSymbol string  // Money-market sweep symbol excluded from equity parsing
	RiskFreeRate    float64 // Annual risk-free rate used in Sharpe/Sortino/alpha
	LogLevel        string
	Port            int
	DevMode         bool
	PriceSyncCron   string // Cron schedule for the background price refresh job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, resolve to absolute path, and ensure it exists.
	dataDir := getEnv("HINDSIGHT_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		ActivityDir:     getEnv("ACTIVITY_DIR", filepath.Join(absDataDir, "activity")),
		PositionsFile:   getEnv("POSITIONS_FILE", filepath.Join(absDataDir, "positions.csv")),
		BenchmarkSymbol: getEnv("BENCHMARK_SYMBOL", "SPY"),
		CashSweepSymbol: getEnv("CASH_SWEEP_SYMBOL", "SPAXX"),
		RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.05),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8090),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		PriceSyncCron:   getEnv("PRICE_SYNC_CRON", "30 22 * * 1-5"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.BenchmarkSymbol == "" {
		return fmt.Errorf("benchmark symbol must not be empty")
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("risk-free rate %.4f out of range [0, 1]", c.RiskFreeRate)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
