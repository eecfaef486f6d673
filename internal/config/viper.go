// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Mongo struct {
		URI      string `mapstructure:"uri" yaml:"-"` // Never serialize credentials
		Database string `mapstructure:"database" yaml:"database"`
	} `mapstructure:"mongo" yaml:"mongo"`

	API struct {
		BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		MaxPages       int    `mapstructure:"max_pages" yaml:"max_pages"`
	} `mapstructure:"api" yaml:"api"`

	Fetch struct {
		MaxLookbackDays int `mapstructure:"max_lookback_days" yaml:"max_lookback_days"`
		OverlapDays     int `mapstructure:"overlap_days" yaml:"overlap_days"`
	} `mapstructure:"fetch" yaml:"fetch"`

	Telegram struct {
		BotToken   string `mapstructure:"bot_token" yaml:"-"` // Never serialize the token
		ChatID     int64  `mapstructure:"chat_id" yaml:"chat_id"`
		GrafanaURL string `mapstructure:"grafana_url" yaml:"grafana_url"`
	} `mapstructure:"telegram" yaml:"telegram"`

	Banks struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"banks" yaml:"banks"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.bankfeed")
	v.AddConfigPath(".bankfeed")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("BANKFEED")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Log the error but don't fail - continue with defaults and env vars
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// 5. Secrets always bind from unprefixed env vars
	bindings := map[string]string{
		"mongo.uri":            "MONGO_URI",
		"mongo.database":       "MONGO_DB_NAME",
		"telegram.bot_token":   "TELEGRAM_BOT_TOKEN",
		"telegram.chat_id":     "TELEGRAM_CHAT_ID",
		"telegram.grafana_url": "GRAFANA_URL",
		"banks.file":           "BANKS_FILE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			fmt.Printf("Warning: failed to bind %s environment variable: %v\n", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mongo.database", "spending")

	v.SetDefault("api.base_url", "https://api.enablebanking.com")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.max_pages", 100)

	v.SetDefault("fetch.max_lookback_days", 365)
	v.SetDefault("fetch.overlap_days", 7)

	v.SetDefault("banks.file", "banks.yaml")
}

// validateConfig checks configuration values for consistency
func validateConfig(config *Config) error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[config.Log.Level] {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive, got %d", config.API.TimeoutSeconds)
	}
	if config.API.MaxPages <= 0 {
		return fmt.Errorf("api.max_pages must be positive, got %d", config.API.MaxPages)
	}

	if config.Fetch.MaxLookbackDays <= 0 {
		return fmt.Errorf("fetch.max_lookback_days must be positive, got %d", config.Fetch.MaxLookbackDays)
	}
	if config.Fetch.OverlapDays < 0 {
		return fmt.Errorf("fetch.overlap_days must not be negative, got %d", config.Fetch.OverlapDays)
	}
	if config.Fetch.OverlapDays > config.Fetch.MaxLookbackDays {
		return fmt.Errorf("fetch.overlap_days (%d) must not exceed fetch.max_lookback_days (%d)",
			config.Fetch.OverlapDays, config.Fetch.MaxLookbackDays)
	}

	return nil
}
