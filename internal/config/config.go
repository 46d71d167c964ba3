// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

// Default tracked tickers when no universe file is supplied
var defaultUniverse = []string{
	"NVDA", "MSFT", "AAPL", "GOOGL", "AMZN", "META", "TSLA", "AMD",
	"AVGO", "ORCL", "CRM", "ADBE", "NFLX", "INTC", "QCOM",
}

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://fintech-tracker.vercel.app",
}

// Config holds application configuration
type Config struct {
	DatabaseURL         string
	RedisURL            string
	LogLevel            string
	FMPAPIKey           string
	AlphaVantageAPIKey  string
	MarketauxAPIKey     string
	FREDAPIKey          string
	SECUserAgent        string
	DigestSchedule      string
	DigestArchiveBucket string
	AWSRegion           string
	// Optional S3-compatible endpoint and static credentials; empty uses the AWS default chain
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	UniverseFile     string
	AllowedOrigins   []string
	Port             int
	DevMode          bool
	ProviderTimeout  time.Duration
	Universe         *Universe
}

// Universe is the tracked ticker list and scoring weights, optionally loaded from YAML
type Universe struct {
	Tickers       []string        `yaml:"universe"`
	Weights       scorers.Weights `yaml:"weights"`
	WatchListSize int             `yaml:"watch_list_size"`
}

// DefaultUniverse returns the built-in universe with default weights
func DefaultUniverse() *Universe {
	tickers := make([]string, len(defaultUniverse))
	copy(tickers, defaultUniverse)
	return &Universe{
		Tickers:       tickers,
		Weights:       scorers.DefaultWeights(),
		WatchListSize: 5,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8000),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://./data/intel.db"),
		RedisURL:            getEnv("REDIS_URL", ""),
		AllowedOrigins:      getEnvAsList("ALLOWED_ORIGINS", defaultAllowedOrigins),
		FMPAPIKey:           getEnv("FMP_API_KEY", ""),
		AlphaVantageAPIKey:  getEnv("ALPHAVANTAGE_API_KEY", ""),
		MarketauxAPIKey:     getEnv("MARKETAUX_API_KEY", ""),
		FREDAPIKey:          getEnv("FRED_API_KEY", ""),
		SECUserAgent:        getEnv("SEC_USER_AGENT", "marketintel research contact@example.com"),
		DigestSchedule:      getEnv("DIGEST_SCHEDULE", "0 30 6 * * MON-FRI"),
		DigestArchiveBucket: getEnv("DIGEST_ARCHIVE_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		ArchiveEndpoint:     getEnv("DIGEST_ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKey:    getEnv("DIGEST_ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey:    getEnv("DIGEST_ARCHIVE_SECRET_KEY", ""),
		UniverseFile:        getEnv("UNIVERSE_FILE", ""),
		ProviderTimeout:     time.Duration(getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 15)) * time.Second,
	}

	universe := DefaultUniverse()
	if cfg.UniverseFile != "" {
		loaded, err := LoadUniverse(cfg.UniverseFile)
		if err != nil {
			return nil, err
		}
		universe = loaded
	}
	cfg.Universe = universe

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadUniverse reads a universe YAML file. Omitted sections fall back to the defaults.
func LoadUniverse(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	var raw struct {
		Tickers       []string         `yaml:"universe"`
		Weights       *scorers.Weights `yaml:"weights"`
		WatchListSize int              `yaml:"watch_list_size"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}

	universe := DefaultUniverse()
	if len(raw.Tickers) > 0 {
		universe.Tickers = make([]string, 0, len(raw.Tickers))
		for _, t := range raw.Tickers {
			universe.Tickers = append(universe.Tickers, strings.ToUpper(strings.TrimSpace(t)))
		}
	}
	if raw.Weights != nil {
		universe.Weights = *raw.Weights
	}
	if raw.WatchListSize > 0 {
		universe.WatchListSize = raw.WatchListSize
	}
	return universe, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(c.DigestSchedule); err != nil {
		return fmt.Errorf("invalid DIGEST_SCHEDULE %q: %w", c.DigestSchedule, err)
	}
	if (c.ArchiveAccessKey == "") != (c.ArchiveSecretKey == "") {
		return fmt.Errorf("DIGEST_ARCHIVE_ACCESS_KEY and DIGEST_ARCHIVE_SECRET_KEY must be set together")
	}
	if c.Universe != nil {
		w := c.Universe.Weights
		if w.Technical < 0 || w.Fundamental < 0 || w.Catalyst < 0 {
			return fmt.Errorf("scoring weights must not be negative")
		}
		if len(c.Universe.Tickers) == 0 {
			return fmt.Errorf("universe must contain at least one ticker")
		}
	}

	// Provider keys are optional: clients without a key report not-configured
	// and callers degrade to empty data.
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
