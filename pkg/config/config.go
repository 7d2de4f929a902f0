package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the archiver.
type Config struct {
	// Misskey instance connection settings
	Misskey MisskeyConfig `yaml:"misskey" json:"misskey"`

	// Archive run settings
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Request pacing configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MisskeyConfig holds instance-specific configuration.
type MisskeyConfig struct {
	// Host is the bare instance hostname, e.g. "misskey.example".
	Host      string `yaml:"host" json:"host"`
	Token     string `yaml:"token" json:"token"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// ArchiveConfig holds crawl settings.
type ArchiveConfig struct {
	ChannelID string `yaml:"channel_id" json:"channel_id"`
	// After is an optional lower-bound note id; notes at or before it are
	// never requested.
	After     string `yaml:"after" json:"after"`
	PageLimit int    `yaml:"page_limit" json:"page_limit"`
}

// RateLimitConfig holds request pacing configuration.
type RateLimitConfig struct {
	// RequestDelayMS is the fixed delay between consecutive requests in
	// milliseconds. Zero disables the delay.
	RequestDelayMS int `yaml:"request_delay_ms" json:"request_delay_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Misskey: MisskeyConfig{
			UserAgent: "mkarchive/1.0",
		},
		Archive: ArchiveConfig{
			PageLimit: 60,
		},
		RateLimit: RateLimitConfig{
			RequestDelayMS: 10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("MKARCHIVE_HOST"); host != "" {
		c.Misskey.Host = host
	}
	if token := os.Getenv("MKARCHIVE_TOKEN"); token != "" {
		c.Misskey.Token = token
	}
	if ua := os.Getenv("MKARCHIVE_USER_AGENT"); ua != "" {
		c.Misskey.UserAgent = ua
	}
	if channel := os.Getenv("MKARCHIVE_CHANNEL_ID"); channel != "" {
		c.Archive.ChannelID = channel
	}
	if delay := os.Getenv("MKARCHIVE_REQUEST_DELAY_MS"); delay != "" {
		if val, err := strconv.Atoi(delay); err == nil && val >= 0 {
			c.RateLimit.RequestDelayMS = val
		}
	}
	if logLevel := os.Getenv("MKARCHIVE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".mkarchive.yaml",
		".mkarchive.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "mkarchive", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "mkarchive", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".mkarchive.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Misskey.Host == "" {
		errs = append(errs, errors.New("instance host is required"))
	}
	if strings.Contains(c.Misskey.Host, "://") {
		errs = append(errs, errors.New("instance host must not include a scheme"))
	}

	if c.Archive.PageLimit <= 0 {
		errs = append(errs, errors.New("page limit must be positive"))
	}
	if c.Archive.PageLimit > 100 {
		errs = append(errs, errors.New("page limit should not exceed 100"))
	}

	if c.RateLimit.RequestDelayMS < 0 {
		errs = append(errs, errors.New("request delay cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Misskey.Host = host
	}
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Misskey.Token = token
	}
	if channel, ok := flags["channel"].(string); ok && channel != "" {
		c.Archive.ChannelID = channel
	}
	if after, ok := flags["after"].(string); ok && after != "" {
		c.Archive.After = after
	}
	if limit, ok := flags["page-limit"].(int); ok && limit > 0 {
		c.Archive.PageLimit = limit
	}
	if delay, ok := flags["request-delay-ms"].(int); ok && delay >= 0 {
		c.RateLimit.RequestDelayMS = delay
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".mkarchive.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
