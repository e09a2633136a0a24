// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Remote RemoteConfig
	Auth   AuthConfig
	Sync   SyncConfig
	Image  ImageConfig
	Import ImportConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath is the directory for the local document cache, the user
	// table, and the search index (default: ~/Keepsake/data).
	BasePath string
}

// RemoteConfig holds remote document store configuration.
// When URL is empty the app runs against the local backend only.
type RemoteConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes, hex-encoded).
	TokenKey string
	// AccessTokenDuration bounds how long a session token is valid.
	AccessTokenDuration time.Duration
}

// SyncConfig holds reconciliation scheduler configuration.
type SyncConfig struct {
	// QuietPeriod is how long local mutations must stop before a save
	// fires (default: 2s).
	QuietPeriod time.Duration
}

// ImageConfig holds photo intake configuration.
type ImageConfig struct {
	// MaxWidth bounds the longer side after compression (default: 1200).
	MaxWidth int
	// Quality is the JPEG re-encode quality, 1-100 (default: 85).
	Quality int
	// MaxUploadBytes is the pre-compression upload ceiling (default: 5 MiB).
	MaxUploadBytes int64
}

// ImportConfig holds drop-folder importer configuration.
type ImportConfig struct {
	// WatchPath is the directory watched for new photos. Empty disables
	// the importer.
	WatchPath string
	// SettleDelay is how long a file must stop changing before import.
	SettleDelay time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for local data storage")
	remoteURL := flag.String("remote-url", "", "Remote document store base URL")
	remoteAPIKey := flag.String("remote-api-key", "", "Remote document store API key")
	remoteTimeout := flag.String("remote-timeout", "", "Remote request timeout (default: 15s)")
	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 720h)")
	syncQuietPeriod := flag.String("sync-quiet-period", "", "Quiet period before a debounced save fires (default: 2s)")
	imageMaxWidth := flag.String("image-max-width", "", "Maximum image width after compression (default: 1200)")
	imageQuality := flag.String("image-quality", "", "JPEG re-encode quality 1-100 (default: 85)")
	importWatchPath := flag.String("import-watch-path", "", "Directory watched for photo drops (default: disabled)")
	importSettleDelay := flag.String("import-settle-delay", "", "Settle delay for dropped files (default: 500ms)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Remote: RemoteConfig{
			URL:    getConfigValue(*remoteURL, "REMOTE_URL", ""),
			APIKey: getConfigValue(*remoteAPIKey, "REMOTE_API_KEY", ""),
		},
		Auth: AuthConfig{
			TokenKey: getConfigValue("", "AUTH_TOKEN_KEY", ""),
		},
		Image: ImageConfig{
			MaxWidth:       getIntConfigValue(*imageMaxWidth, "IMAGE_MAX_WIDTH", 1200),
			Quality:        getIntConfigValue(*imageQuality, "IMAGE_QUALITY", 85),
			MaxUploadBytes: int64(getIntConfigValue("", "IMAGE_MAX_UPLOAD_BYTES", 5*1024*1024)),
		},
		Import: ImportConfig{
			WatchPath: getConfigValue(*importWatchPath, "IMPORT_WATCH_PATH", ""),
		},
	}

	// Parse durations.
	remoteTimeoutStr := getConfigValue(*remoteTimeout, "REMOTE_TIMEOUT", "15s")
	remoteTimeoutDuration, err := time.ParseDuration(remoteTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid remote timeout %q: %w", remoteTimeoutStr, err)
	}
	cfg.Remote.Timeout = remoteTimeoutDuration

	accessDurationStr := getConfigValue(*accessTokenDuration, "ACCESS_TOKEN_DURATION", "720h")
	accessDuration, err := time.ParseDuration(accessDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration %q: %w", accessDurationStr, err)
	}
	cfg.Auth.AccessTokenDuration = accessDuration

	quietPeriodStr := getConfigValue(*syncQuietPeriod, "SYNC_QUIET_PERIOD", "2s")
	quietPeriod, err := time.ParseDuration(quietPeriodStr)
	if err != nil {
		return nil, fmt.Errorf("invalid sync quiet period %q: %w", quietPeriodStr, err)
	}
	cfg.Sync.QuietPeriod = quietPeriod

	settleDelayStr := getConfigValue(*importSettleDelay, "IMPORT_SETTLE_DELAY", "500ms")
	settleDelay, err := time.ParseDuration(settleDelayStr)
	if err != nil {
		return nil, fmt.Errorf("invalid import settle delay %q: %w", settleDelayStr, err)
	}
	cfg.Import.SettleDelay = settleDelay

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand import watch path (empty keeps the importer disabled).
	if err := cfg.expandImportWatchPath(); err != nil {
		return nil, fmt.Errorf("invalid import watch path: %w", err)
	}

	// Validate configuration.
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

	if c.Image.MaxWidth <= 0 {
		return fmt.Errorf("invalid image max width: %d", c.Image.MaxWidth)
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("invalid image quality: %d (must be 1-100)", c.Image.Quality)
	}

	if c.Sync.QuietPeriod <= 0 {
		return fmt.Errorf("invalid sync quiet period: %s", c.Sync.QuietPeriod)
	}

	// Remote URL can be empty - the app then runs against the local backend.

	// Auth token key is generated and persisted on first run when unset.

	return nil
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

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Keepsake", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandImportWatchPath expands ~ and makes the path absolute.
// If empty, leaves it empty to keep the importer disabled.
func (c *Config) expandImportWatchPath() error {
	if c.Import.WatchPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Import.WatchPath, "")
	if err != nil {
		return err
	}
	c.Import.WatchPath = expanded
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

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
