package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileEnv names the environment variable pointing at an optional TOML file.
const FileEnv = "FINTRACK_CONFIG"

type Config struct {
	// Backend
	APIBaseURL  string        `mapstructure:"api_base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Token persistence
	TokenStore  string `mapstructure:"token_store"`
	TokenDBPath string `mapstructure:"token_db_path"`

	// AMQP change events (optional)
	AMQPURL        string `mapstructure:"amqp_url"`
	AMQPExchange   string `mapstructure:"amqp_exchange"`
	AMQPRoutingKey string `mapstructure:"amqp_routing_key"`

	// Derived views
	BudgetWarningPct float64 `mapstructure:"budget_warning_pct"`
	BudgetOverPct    float64 `mapstructure:"budget_over_pct"`
	RecentLimit      int     `mapstructure:"recent_limit"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Google Sheets export
	GoogleSpreadsheetID string `mapstructure:"google_spreadsheet_id"`
	GoogleSheetName     string `mapstructure:"google_sheet_name"`
}

var defaults = map[string]any{
	"api_base_url":          "http://localhost:5000/api",
	"http_timeout":          time.Duration(0),
	"token_store":           "sqlite",
	"token_db_path":         "./data/fintrack.db",
	"amqp_url":              "",
	"amqp_exchange":         "fintrack",
	"amqp_routing_key":      "snapshot.changed",
	"budget_warning_pct":    80.0,
	"budget_over_pct":       100.0,
	"recent_limit":          5,
	"log_level":             "info",
	"log_format":            "text",
	"google_spreadsheet_id": "",
	"google_sheet_name":     "Transactions",
}

// Load reads defaults, then the TOML file named by FINTRACK_CONFIG if any,
// then environment variables. Later sources win.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if u, err := url.Parse(c.APIBaseURL); err != nil || c.APIBaseURL == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.HTTPTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must not be negative", c.HTTPTimeout))
	}

	switch c.TokenStore {
	case "memory":
	case "sqlite":
		if c.TokenDBPath == "" {
			errors = append(errors, "token database path cannot be empty when using sqlite token store")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid token store '%s': must be one of [memory sqlite]", c.TokenStore))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.BudgetWarningPct <= 0 {
		errors = append(errors, fmt.Sprintf("invalid budget warning threshold %v: must be positive", c.BudgetWarningPct))
	}
	if c.BudgetOverPct < c.BudgetWarningPct {
		errors = append(errors, fmt.Sprintf("invalid budget over threshold %v: must be at least the warning threshold %v", c.BudgetOverPct, c.BudgetWarningPct))
	}

	if c.RecentLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be at least 1", c.RecentLimit))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ExportEnabled reports whether a target spreadsheet has been configured.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}
