package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data providers
	Alpaca AlpacaConfig
	FMP    FMPConfig
	Finviz FinvizConfig
	Yahoo  YahooConfig

	// Generative advisor
	Advisor AdvisorConfig

	// Service-to-service calls (tiebreak, tracker)
	Internal InternalConfig

	// Premarket window
	Premarket PremarketConfig

	// Strategy policy file (thresholds)
	StrategyFile string

	SchedulerEnabled bool

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// AlpacaConfig holds Alpaca trading/market data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API (asset lookup)
	DataURL   string // market data API, empty = SDK default
	Feed      string // sip, iex
}

// FMPConfig holds Financial Modeling Prep configuration
type FMPConfig struct {
	APIKey  string
	BaseURL string
}

// FinvizConfig holds Finviz quote page scraping configuration
type FinvizConfig struct {
	BaseURL string
	Enabled bool
}

// YahooConfig toggles the Yahoo Finance quote fallback
type YahooConfig struct {
	Enabled bool
}

// AdvisorConfig holds the generative advisor configuration
type AdvisorConfig struct {
	Provider    string // openai, claude, gemini
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// InternalConfig holds self-referential service settings
type InternalConfig struct {
	BaseURL         string
	TiebreakTimeout time.Duration
	TrackerEnabled  bool
	TrackerTimeout  time.Duration
}

// PremarketConfig holds the morning bar window settings
type PremarketConfig struct {
	Enabled     bool
	WindowStart string // HH:MM exchange-local
	WindowEnd   string // HH:MM exchange-local
	Throttle    time.Duration
	Timezone    string
}

// Location resolves the exchange timezone
func (p PremarketConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", p.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Alpaca: AlpacaConfig{
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_SECRET_KEY", ""),
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			DataURL:   getEnv("ALPACA_DATA_URL", ""),
			Feed:      strings.ToLower(getEnv("ALPACA_FEED", "sip")),
		},

		FMP: FMPConfig{
			APIKey:  getEnv("FMP_API_KEY", ""),
			BaseURL: getEnv("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		},

		Finviz: FinvizConfig{
			BaseURL: getEnv("FINVIZ_BASE_URL", "https://finviz.com"),
			Enabled: getEnvAsBool("FINVIZ_ENABLED", true),
		},

		Yahoo: YahooConfig{
			Enabled: getEnvAsBool("YAHOO_ENABLED", true),
		},

		Advisor: AdvisorConfig{
			Provider:    strings.ToLower(getEnv("ADVISOR_PROVIDER", "openai")),
			Model:       getEnv("ADVISOR_MODEL", ""),
			APIKey:      getEnv("ADVISOR_API_KEY", ""),
			Timeout:     getEnvAsDuration("ADVISOR_TIMEOUT", "30s"),
			MaxTokens:   getEnvAsInt("ADVISOR_MAX_TOKENS", 800),
			Temperature: getEnvAsFloat("ADVISOR_TEMPERATURE", 0.2),
		},

		Internal: InternalConfig{
			BaseURL:         strings.TrimRight(getEnv("INTERNAL_BASE_URL", "http://localhost:8080"), "/"),
			TiebreakTimeout: getEnvAsDuration("TIEBREAK_TIMEOUT", "15s"),
			TrackerEnabled:  getEnvAsBool("TRACKER_ENABLED", true),
			TrackerTimeout:  getEnvAsDuration("TRACKER_TIMEOUT", "10s"),
		},

		Premarket: PremarketConfig{
			Enabled:     getEnvAsBool("PREMARKET_ENABLED", true),
			WindowStart: getEnv("PREMARKET_WINDOW_START", "08:00"),
			WindowEnd:   getEnv("PREMARKET_WINDOW_END", "09:30"),
			Throttle:    getEnvAsDuration("PREMARKET_THROTTLE", "2m"),
			Timezone:    getEnv("MARKET_TIMEZONE", "America/New_York"),
		},

		StrategyFile:     getEnv("STRATEGY_FILE", "config/strategy/top_gainers.yaml"),
		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", true),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
// ADVISOR_API_KEY는 요청 시점에 검사 (fail fast per request)
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	// 개발/테스트 환경은 in-memory 저장소 허용
	if c.Database.URL == "" && !c.IsLocal() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Advisor.Provider {
	case "openai", "claude", "gemini":
	default:
		return fmt.Errorf("ADVISOR_PROVIDER must be one of: openai, claude, gemini")
	}

	if c.Alpaca.Feed != "sip" && c.Alpaca.Feed != "iex" {
		return fmt.Errorf("ALPACA_FEED must be one of: sip, iex")
	}

	if _, err := time.Parse("15:04", c.Premarket.WindowStart); err != nil {
		return fmt.Errorf("PREMARKET_WINDOW_START must be HH:MM: %w", err)
	}
	if _, err := time.Parse("15:04", c.Premarket.WindowEnd); err != nil {
		return fmt.Errorf("PREMARKET_WINDOW_END must be HH:MM: %w", err)
	}
	if c.Premarket.WindowStart >= c.Premarket.WindowEnd {
		return fmt.Errorf("PREMARKET_WINDOW_START must be before PREMARKET_WINDOW_END")
	}
	if _, err := c.Premarket.Location(); err != nil {
		return err
	}

	// 0 이하 timeout은 context.WithTimeout 즉시 만료
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"ADVISOR_TIMEOUT", c.Advisor.Timeout},
		{"TIEBREAK_TIMEOUT", c.Internal.TiebreakTimeout},
		{"TRACKER_TIMEOUT", c.Internal.TrackerTimeout},
		{"PREMARKET_THROTTLE", c.Premarket.Throttle},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %s", d.name, d.value)
		}
	}

	return nil
}

// IsLocal reports whether the process runs without shared infrastructure
func (c *Config) IsLocal() bool {
	return c.Env == "development" || c.Env == "test"
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
