// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// ConfigFileEnv names the environment variable pointing at an optional TOML file.
const ConfigFileEnv = "DASHBOARD_CONFIG"

// Config holds the application configuration.
type Config struct {
	// Server settings
	Port      string `toml:"port"`
	Host      string `toml:"host"`
	PublicURL string `toml:"public_url"` // Absolute base URL used in QR codes

	// Database settings
	DBPath string `toml:"db_path"`

	// Trading API settings
	API APIConfig `toml:"api"`

	// Session settings
	SessionMaxAge int `toml:"session_max_age"` // in seconds

	// Used for encrypting stored access tokens
	EncryptionSecret string `toml:"encryption_secret"`

	// Logging
	LogLevel string `toml:"log_level"`

	// Environment
	IsDevelopment bool `toml:"-"`
}

// APIConfig holds the trading API client settings.
type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"` // requests per second
}

// GetTimeout parses and returns the timeout duration.
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// defaults returns the configuration used when nothing is set.
func defaults() *Config {
	return &Config{
		Port:   "3000",
		Host:   "localhost",
		DBPath: filepath.Join("data", "dashboard.db"),
		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   "15s",
			RateLimit: 20,
		},
		SessionMaxAge:    86400 * 7, // 7 days
		EncryptionSecret: "change-me-in-production-32chars!",
		LogLevel:         "info",
	}
}

// New creates a new Config. Values come, in increasing precedence, from
// the defaults, the TOML file named by DASHBOARD_CONFIG, a .env file and
// the process environment.
func New() (*Config, error) {
	// A missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// loadFile overlays the values of a TOML file onto c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Host = getEnv("HOST", c.Host)
	c.PublicURL = getEnv("PUBLIC_URL", c.PublicURL)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.API.BaseURL = getEnv("API_BASE_URL", c.API.BaseURL)
	c.API.Timeout = getEnv("API_TIMEOUT", c.API.Timeout)
	c.API.RateLimit = getEnvInt("API_RATE_LIMIT", c.API.RateLimit)
	c.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", c.SessionMaxAge)
	c.EncryptionSecret = getEnv("ENCRYPTION_SECRET", c.EncryptionSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.IsDevelopment = getEnv("ENV", "development") == "development"

	if c.PublicURL == "" {
		c.PublicURL = "http://" + c.Address()
	}
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt is getEnv for integer settings; unparsable values are ignored.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
