package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	BackendURL    string        `mapstructure:"BACKEND_URL"`
	BackendAPIKey string        `mapstructure:"BACKEND_API_KEY"`
	UserAgent     string        `mapstructure:"USERAGENT"`
	DataDir       string        `mapstructure:"DATA_DIR"`
	ListenAddr    string        `mapstructure:"LISTEN_ADDR"`
	UpstreamURL   string        `mapstructure:"UPSTREAM_URL"`
	CacheVersion  string        `mapstructure:"CACHE_VERSION"`
	APICacheTTL   time.Duration `mapstructure:"-"` // Parsed from API_CACHE_TTL
	SyncInterval  time.Duration `mapstructure:"-"` // Parsed from SYNC_INTERVAL
	QueueCap      int           `mapstructure:"-"` // Parsed from QUEUE_CAP
	DatabasePath  string        `mapstructure:"-"` // Not from env, derived
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vip_err := viper.ReadInConfig()
	if _, ok := vip_err.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vip_err != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vip_err)
	}

	// Bind environment variables automatically.
	// Viper will check for an environment variable matching the key name (e.g., BACKEND_URL)
	viper.AutomaticEnv()

	for _, key := range []struct{ viperKey, envVar string }{
		{"backend_url", "BACKEND_URL"},
		{"backend_api_key", "BACKEND_API_KEY"},
		{"useragent", "USERAGENT"},
		{"data_dir", "DATA_DIR"},
		{"listen_addr", "LISTEN_ADDR"},
		{"upstream_url", "UPSTREAM_URL"},
		{"cache_version", "CACHE_VERSION"},
	} {
		if bindErr := viper.BindEnv(key.viperKey, key.envVar); bindErr != nil {
			slog.Warn("Unable to bind env var", "var", key.envVar, "error", bindErr)
		}
	}

	// Unmarshal the config
	vip_err = viper.Unmarshal(&config)
	if vip_err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vip_err)
	}

	processConfigDefaults(&config)

	// Validate BackendURL - needs to be set
	if config.BackendURL == "" {
		slog.Error("BACKEND_URL is not set")
		return Config{}, fmt.Errorf("BACKEND_URL is required")
	}

	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

// processConfigDefaults fills unset fields with their defaults and parses
// the duration/integer tunables out of Viper.
func processConfigDefaults(config *Config) {
	if config.ListenAddr == "" {
		config.ListenAddr = ":8787" // Default edge listen address
	}
	if config.CacheVersion == "" {
		// Match the deploy naming scheme used by the site (v<timestamp>)
		config.CacheVersion = "v" + time.Now().Format("200601021504")
		slog.Info("CACHE_VERSION not set, derived from current time", "version", config.CacheVersion)
	}
	if config.UserAgent == "" {
		config.UserAgent = "minigameshub-edge/dev (unknown-user)"
		slog.Warn("USERAGENT not set in config or environment, using default.")
	}

	config.APICacheTTL = parseDurationOr("API_CACHE_TTL", 5*time.Minute)
	config.SyncInterval = parseDurationOr("SYNC_INTERVAL", 5*time.Minute)

	capStr := viper.GetString("QUEUE_CAP")
	if capStr == "" {
		config.QueueCap = 50 // Bound pending mutations per kind
	} else {
		queueCap, err := strconv.Atoi(capStr)
		if err != nil || queueCap <= 0 {
			slog.Warn("Invalid value for QUEUE_CAP ('"+capStr+"'), defaulting to 50", "error", err)
			config.QueueCap = 50
		} else {
			config.QueueCap = queueCap
		}
	}
}

// validateAndEnsureDirectories checks DataDir is configured, creates it if
// missing, and derives the database path inside it.
func validateAndEnsureDirectories(config *Config) error {
	if config.DataDir == "" {
		slog.Error("DATA_DIR is not set")
		return fmt.Errorf("DATA_DIR is required")
	}
	if _, err := os.Stat(config.DataDir); os.IsNotExist(err) {
		slog.Info("Data directory does not exist, creating it", "path", config.DataDir)
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			slog.Error("Failed to create data directory", "path", config.DataDir, "error", err)
			return err
		}
	} else if err != nil {
		slog.Error("Failed to check data directory", "path", config.DataDir, "error", err)
		return err
	}

	// Derive DatabasePath (place it in the data dir for portability)
	config.DatabasePath = filepath.Join(config.DataDir, "catalog.db")

	return nil
}

// parseDurationOr reads a duration-valued key from Viper, falling back to def
// when the key is unset or malformed.
func parseDurationOr(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration value, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}
