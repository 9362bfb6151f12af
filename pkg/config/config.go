package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// Files and directories
	SettingsPath string // stock settings document consumed by the app
	CacheDir     string // per-(provider, period) statistics cache files
	DebugDir     string // unparsable provider payloads land here
	DataDir      string // optional raw price series exports, empty disables

	// Providers
	Yahoo  ProviderConfig
	Nasdaq ProviderConfig

	// HTTP
	HTTPTimeout  time.Duration
	RequestDelay time.Duration // polite delay between per-symbol requests
	UserAgent    string

	// Logging
	LogLevel  string
	LogFormat string
}

// ProviderConfig holds per-provider endpoint configuration.
type ProviderConfig struct {
	BaseURL string
}

// Load reads configuration from the environment, with .env support.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		SettingsPath: getEnv("SETTINGS_PATH", "stock_settings.json"),
		CacheDir:     getEnv("CACHE_DIR", "cache"),
		DebugDir:     getEnv("DEBUG_DIR", "debug"),
		DataDir:      getEnv("DATA_DIR", ""),

		Yahoo: ProviderConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		},
		Nasdaq: ProviderConfig{
			BaseURL: getEnv("NASDAQ_BASE_URL", "https://www.nasdaq.com"),
		},

		HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", "30s"),
		RequestDelay: getEnvAsDuration("REQUEST_DELAY", "1s"),
		UserAgent: getEnv("USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.SettingsPath == "" {
		return fmt.Errorf("SETTINGS_PATH must not be empty")
	}

	// Upstreams block aggressive clients, never go below one second.
	if c.RequestDelay < time.Second {
		return fmt.Errorf("REQUEST_DELAY must be at least 1s, got %s", c.RequestDelay)
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
