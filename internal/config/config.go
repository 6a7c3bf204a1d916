package config

import (
	"os"
	"strconv"
)

// Config is the runtime configuration of the ops dashboard service.
type Config struct {
	// Server
	Port     string `json:"port"`
	LogLevel string `json:"log_level"`

	// Reporting rules
	IssueRuleText         string `json:"issue_rule_text"`
	NotFoundShippingLabel string `json:"not_found_shipping_label"`
	ComparisonPeriodDays  int    `json:"comparison_period_days"`

	// Upload limits
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// Rate limiting
	RateLimitPerSec int `json:"rate_limit_per_sec"`
}

// Load builds the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("SERVER_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		IssueRuleText:         getEnv("ISSUE_RULE_TEXT", "Count row as issue when line_issue is truthy (Yes/True/1)."),
		NotFoundShippingLabel: getEnv("NOT_FOUND_SHIPPING_LABEL", "Not Found / Not Shipped Yet"),
		ComparisonPeriodDays:  getEnvInt("COMPARISON_PERIOD_DAYS", 7),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 32<<20),

		RateLimitPerSec: getEnvInt("RATE_LIMIT_PER_SEC", 25),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnv returns the environment variable value or the default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 returns the environment variable as int64 or the default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
