// Package config handles configuration loading for fintel.
// It supports YAML config files, a local .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables read directly, without the FINTEL_ prefix.
const (
	EnvGroqKey         = "GROQ_API_KEY"
	EnvExchangeRateKey = "EXCHANGERATE_API_KEY"
)

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Currency CurrencyConfig `mapstructure:"currency" yaml:"currency"`
	News     NewsConfig     `mapstructure:"news"     yaml:"news"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds the orchestrator's model configuration.
type LLMConfig struct {
	Runtime     string  `mapstructure:"runtime"     yaml:"runtime"     json:"runtime"     validate:"oneof=eino native"`
	BaseURL     string  `mapstructure:"base_url"    yaml:"base_url"    json:"base_url"    validate:"required,url"`
	APIKey      string  `mapstructure:"api_key"     yaml:"api_key"     json:"-"`
	Model       string  `mapstructure:"model"       yaml:"model"       json:"model"       validate:"required"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"  json:"max_tokens"  validate:"gte=0"`
	MaxSteps    int     `mapstructure:"max_steps"   yaml:"max_steps"   json:"max_steps"   validate:"gte=1,lte=50"`
	TimeoutSec  int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec" validate:"gte=1"`
}

// CurrencyConfig holds the live exchange-rate service settings.
type CurrencyConfig struct {
	BaseURL           string `mapstructure:"base_url"            yaml:"base_url"            json:"base_url"            validate:"required,url"`
	APIKey            string `mapstructure:"api_key"             yaml:"api_key"             json:"-"`
	TimeoutSec        int    `mapstructure:"timeout_sec"         yaml:"timeout_sec"         json:"timeout_sec"         validate:"gte=1"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute" validate:"gte=0"`
}

// NewsConfig holds the optional market headlines tool settings.
type NewsConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"      json:"enabled"`
	FeedPattern string `mapstructure:"feed_pattern" yaml:"feed_pattern" json:"feed_pattern" validate:"required_if=Enabled true"`
	Limit       int    `mapstructure:"limit"        yaml:"limit"        json:"limit"        validate:"gte=1,lte=50"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port" validate:"gte=1,lte=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"  validate:"oneof=debug info warn warning error"` // "debug", "info", "warn" (or "warning"), "error"
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`            // "text" or "json"
}

// Timeout returns the live currency request timeout.
func (c CurrencyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout returns the per-run orchestrator timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Addr returns the listen address for the HTTP server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var validate = validator.New()

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.fintel/config.yaml (home directory)
//  3. /etc/fintel/config.yaml (system)
//
// A .env file in the working directory is loaded first; it never overrides
// variables already present in the environment.
// Environment variables override config file values.
// Format: FINTEL_<SECTION>_<KEY>, e.g., FINTEL_LLM_MODEL
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".fintel"))
	v.AddConfigPath("/etc/fintel")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Default returns the configuration built from defaults and the environment only.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Defaults are static and always valid.
		panic(err)
	}
	return cfg
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Groq serves an OpenAI-compatible API.
	v.SetDefault("llm.runtime", "eino")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.max_steps", 10)
	v.SetDefault("llm.timeout_sec", 120)

	v.SetDefault("currency.base_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("currency.timeout_sec", 5)
	v.SetDefault("currency.requests_per_minute", 30)

	v.SetDefault("news.enabled", false)
	v.SetDefault("news.feed_pattern", "https://news.google.com/rss/search?q=%s+stock+market&hl=en")
	v.SetDefault("news.limit", 5)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv reads the unprefixed credential variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvGroqKey); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv(EnvExchangeRateKey); key != "" {
		cfg.Currency.APIKey = key
	}
}

// loadDotEnv loads ./.env when present. A missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
