// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Server   ServerConfig
	Auth     AuthConfig
	Handover HandoverConfig
	Policy   Policy
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	BasePath string
	// DatabasePath is the SQLite file (default: {base}/pathagar.db)
	DatabasePath string
	// InboxPath is the badger directory for notifications (default: {base}/inbox)
	InboxPath string
	// SearchPath is the bleve index directory (default: {base}/search)
	SearchPath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins for the web client
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration // e.g., 24h
}

// HandoverConfig holds handover coordination settings.
type HandoverConfig struct {
	// PublicRead lets any member read handover threads instead of only the two parties and admins.
	PublicRead bool
	// ScanInterval is how often due readings are checked for upcoming handovers.
	ScanInterval time.Duration
}

// LoadConfig loads configuration from the process arguments. See Load.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pathagar", flag.ContinueOnError)

	// Define command-line flags.
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for data storage")
	dbPath := fs.String("db-path", "", "Path to the SQLite database")
	policyPath := fs.String("policy", "", "Path to the YAML policy file")

	// Auth flags
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins")

	// Handover flags
	handoverPublicRead := fs.String("handover-public-read", "", "Let all members read handover threads (default: false)")
	handoverScanInterval := fs.String("handover-scan-interval", "", "How often to scan for upcoming handovers (default: 1h)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	// godotenv.Load never overrides variables already set in the environment.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:     getConfigValue(*dataPath, "DATA_PATH", ""),
			DatabasePath: getConfigValue(*dbPath, "DB_PATH", ""),
			InboxPath:    getConfigValue("", "INBOX_PATH", ""),
			SearchPath:   getConfigValue("", "SEARCH_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Handover: HandoverConfig{
			PublicRead: getBoolConfigValue(*handoverPublicRead, "HANDOVER_PUBLIC_READ", false),
		},
	}

	accessDurationStr := getConfigValue(*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h")
	accessDuration, err := time.ParseDuration(accessDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration %q: %w", accessDurationStr, err)
	}
	cfg.Auth.AccessTokenDuration = accessDuration

	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Handover.ScanInterval, err = getDurationConfigValue(*handoverScanInterval, "HANDOVER_SCAN_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid handover scan interval: %w", err)
	}

	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	policy, err := LoadPolicy(getConfigValue(*policyPath, "POLICY_PATH", ""))
	if err != nil {
		return nil, err
	}
	cfg.Policy = *policy

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Handover.ScanInterval <= 0 {
		return errors.New("handover scan interval must be positive")
	}

	return c.Policy.Validate()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPaths resolves the base path and the stores that default beneath it.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "AmarPathagar", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = base

	if c.Data.DatabasePath, err = expandPath(c.Data.DatabasePath, filepath.Join(base, "pathagar.db")); err != nil {
		return err
	}
	if c.Data.InboxPath, err = expandPath(c.Data.InboxPath, filepath.Join(base, "inbox")); err != nil {
		return err
	}
	if c.Data.SearchPath, err = expandPath(c.Data.SearchPath, filepath.Join(base, "search")); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
