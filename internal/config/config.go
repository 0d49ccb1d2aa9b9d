// Package config loads server configuration from command-line flags,
// environment variables, a .env file and built-in defaults.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Saveable  SaveableConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DatabaseConfig locates the SQLite database and the key material next to it.
type DatabaseConfig struct {
	Path    string
	KeyPath string // PASETO key file (default: alongside the database)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s
	IdleTimeout  time.Duration // default: 60s
	CORSOrigins  []string
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key (32 bytes), set by auth.LoadOrGenerateKey.
	TokenKey      []byte
	TokenDuration time.Duration
}

// RateLimitConfig controls the per-actor request limiter.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// SaveableConfig configures the save engine itself.
type SaveableConfig struct {
	SavesTable         string
	CollectionsTable   string
	AutoOrdering       bool
	MaxCollectionDepth int
	MaxMixedTypes      int
}

// DefaultSaveableConfig returns the engine defaults.
func DefaultSaveableConfig() SaveableConfig {
	return SaveableConfig{
		SavesTable:         "saves",
		CollectionsTable:   "collections",
		AutoOrdering:       true,
		MaxCollectionDepth: 64,
		MaxMixedTypes:      32,
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Load reads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("saveable", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := fs.String("db-path", "", "Path to the SQLite database")
	keyPath := fs.String("key-path", "", "Path to the token key file")

	serverName := fs.String("server-name", "", "Name for the server")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed CORS origins")

	tokenDuration := fs.String("token-duration", "", "Access token lifetime (default: 720h)")

	rateLimitEnabled := fs.String("rate-limit", "", "Enable per-actor rate limiting (default: true)")
	rateLimitRPS := fs.String("rate-limit-rps", "", "Requests per second per actor (default: 20)")
	rateLimitBurst := fs.String("rate-limit-burst", "", "Burst size per actor (default: 40)")

	savesTable := fs.String("saves-table", "", "Table holding saves (default: saves)")
	collectionsTable := fs.String("collections-table", "", "Table holding collections (default: collections)")
	autoOrdering := fs.String("auto-ordering", "", "Append new saves at the end of their scope (default: true)")
	maxDepth := fs.String("max-collection-depth", "", "Maximum collection nesting depth (default: 64)")
	maxMixed := fs.String("max-mixed-types", "", "Maximum distinct types in a mixed-type query (default: 32)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine.
	_ = loadEnvFile(*envFile)

	defaults := DefaultSaveableConfig()
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Path:    getConfigValue(*dbPath, "DB_PATH", ""),
			KeyPath: getConfigValue(*keyPath, "KEY_PATH", ""),
		},
		Server: ServerConfig{
			Name:        getConfigValue(*serverName, "SERVER_NAME", "Saveable"),
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolConfigValue(*rateLimitEnabled, "RATE_LIMIT_ENABLED", true),
			RPS:     getFloatConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", 20),
			Burst:   getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 40),
		},
		Saveable: SaveableConfig{
			SavesTable:         getConfigValue(*savesTable, "SAVES_TABLE", defaults.SavesTable),
			CollectionsTable:   getConfigValue(*collectionsTable, "COLLECTIONS_TABLE", defaults.CollectionsTable),
			AutoOrdering:       getBoolConfigValue(*autoOrdering, "AUTO_ORDERING", defaults.AutoOrdering),
			MaxCollectionDepth: getIntConfigValue(*maxDepth, "MAX_COLLECTION_DEPTH", defaults.MaxCollectionDepth),
			MaxMixedTypes:      getIntConfigValue(*maxMixed, "MAX_MIXED_TYPES", defaults.MaxMixedTypes),
		},
	}

	durations := []struct {
		flagValue, envKey, def, name string
		dst                          *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
		{*tokenDuration, "TOKEN_DURATION", "720h", "token duration", &cfg.Auth.TokenDuration},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDatabasePaths(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate limit rps and burst must be positive when enabled")
	}

	return c.Saveable.Validate()
}

// Validate checks the engine settings. Table names are interpolated into
// SQL, so they must be plain identifiers.
func (s SaveableConfig) Validate() error {
	if !identifierPattern.MatchString(s.SavesTable) {
		return fmt.Errorf("invalid saves table name: %q", s.SavesTable)
	}
	if !identifierPattern.MatchString(s.CollectionsTable) {
		return fmt.Errorf("invalid collections table name: %q", s.CollectionsTable)
	}
	if strings.EqualFold(s.SavesTable, s.CollectionsTable) {
		return errors.New("saves and collections tables must differ")
	}
	if strings.EqualFold(s.SavesTable, "entities") || strings.EqualFold(s.CollectionsTable, "entities") {
		return errors.New(`table name "entities" is reserved`)
	}
	if s.MaxCollectionDepth < 1 {
		return fmt.Errorf("max collection depth must be at least 1, got %d", s.MaxCollectionDepth)
	}
	if s.MaxMixedTypes < 1 {
		return fmt.Errorf("max mixed types must be at least 1, got %d", s.MaxMixedTypes)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty the default is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDatabasePaths defaults the database to ~/Saveable/saveable.db and
// the key file to the database's directory.
func (c *Config) expandDatabasePaths() error {
	defaultDB := ""
	if c.Database.Path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultDB = filepath.Join(homeDir, "Saveable", "saveable.db")
	}

	dbPath, err := expandPath(c.Database.Path, defaultDB)
	if err != nil {
		return err
	}
	c.Database.Path = dbPath

	keyPath, err := expandPath(c.Database.KeyPath, filepath.Join(filepath.Dir(dbPath), "token.key"))
	if err != nil {
		return err
	}
	c.Database.KeyPath = keyPath
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	n, err := strconv.Atoi(getConfigValue(flagValue, envKey, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getConfigValue(flagValue, envKey, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- path comes from the operator
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment wins over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
