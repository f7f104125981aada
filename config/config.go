package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/eventhawk/eventhawk/pkg/log"
	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabaseURL = "sqlite:///events.db"
	DefaultListenAddr  = ":8000"
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
)

// Config holds all application configuration
type Config struct {
	DatabaseURL       string   `toml:"database_url" yaml:"database_url" json:"database_url"`
	ListenAddr        string   `toml:"listen_addr" yaml:"listen_addr" json:"listen_addr"`
	LogLevel          string   `toml:"log_level" yaml:"log_level" json:"log_level"`
	DebugEnabled      bool     `toml:"debug" yaml:"debug" json:"debug"`
	PageSize          int      `toml:"page_size" yaml:"page_size" json:"page_size"`
	MaxPageSize       int      `toml:"max_page_size" yaml:"max_page_size" json:"max_page_size"`
	CORSOrigins       []string `toml:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
	AnalyticsCacheTTL Duration `toml:"analytics_cache_ttl" yaml:"analytics_cache_ttl" json:"analytics_cache_ttl"`
}

// Duration is a time.Duration read from strings such as "10m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DatabaseURL:       DefaultDatabaseURL,
		ListenAddr:        DefaultListenAddr,
		LogLevel:          "info",
		PageSize:          DefaultPageSize,
		MaxPageSize:       DefaultMaxPageSize,
		CORSOrigins:       []string{"*"},
		AnalyticsCacheTTL: Duration{10 * time.Minute},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// environment variables, in increasing order of precedence.
// A .env file is loaded automatically via the autoload import.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database url is required")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("max page size must be positive, got %d", c.MaxPageSize)
	}
	if c.PageSize < 1 || c.PageSize > c.MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d, got %d", c.MaxPageSize, c.PageSize)
	}
	if c.AnalyticsCacheTTL.Duration < 0 {
		return fmt.Errorf("analytics cache ttl must not be negative")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".json":
		err = json.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	log.Debugf("loaded config file %s", path)
	return nil
}

func (c *Config) applyEnv() {
	c.DatabaseURL = getEnvWithDefault("DATABASE_URL", c.DatabaseURL)
	c.ListenAddr = getEnvWithDefault("EVENTHAWK_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnvWithDefault("EVENTHAWK_LOG_LEVEL", c.LogLevel)
	c.DebugEnabled = getBoolEnvWithDefault("DEBUG", c.DebugEnabled)
	c.PageSize = getIntEnvWithDefault("EVENTHAWK_PAGE_SIZE", c.PageSize)
	c.MaxPageSize = getIntEnvWithDefault("EVENTHAWK_MAX_PAGE_SIZE", c.MaxPageSize)

	if value := strings.TrimSpace(os.Getenv("EVENTHAWK_CORS_ORIGINS")); value != "" {
		c.CORSOrigins = splitList(value)
	}
	if value := strings.TrimSpace(os.Getenv("EVENTHAWK_ANALYTICS_CACHE_TTL")); value != "" {
		var ttl Duration
		if err := ttl.UnmarshalText([]byte(value)); err != nil {
			log.Warnf("invalid duration for EVENTHAWK_ANALYTICS_CACHE_TTL=%q, keeping %s", value, c.AnalyticsCacheTTL)
		} else {
			c.AnalyticsCacheTTL = ttl
		}
	}
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnvWithDefault gets a boolean environment variable with a default fallback
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Warnf("invalid boolean value for %s=%q, using %t", key, value, defaultValue)
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warnf("invalid integer value for %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
