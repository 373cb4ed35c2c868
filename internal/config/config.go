package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Early Health Guardian
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// MailConfig holds the external mail relay settings. The relay is optional:
// with no endpoint configured, reminder dispatch runs log-only.
type MailConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	Timeout  int    `mapstructure:"timeout"`
}

// BatchConfig holds batch job scheduling settings
type BatchConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"` // cron expression, e.g. "@daily" or "0 8 * * *"
	Timezone string `mapstructure:"timezone"` // reference timezone for period windows
}

// SecurityConfig holds API security settings
type SecurityConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	ServiceToken string   `mapstructure:"service_token"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "guardian.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "guardian.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (GUARDIAN_SERVER_PORT, GUARDIAN_MAIL_API_KEY, etc.)
	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	// Mail defaults
	v.SetDefault("mail.from", "alerts@earlyhealthguardian.app")
	v.SetDefault("mail.timeout", 30)

	// Batch defaults
	v.SetDefault("batch.enabled", true)
	v.SetDefault("batch.schedule", "@daily")
	v.SetDefault("batch.timezone", "UTC")

	// Security defaults
	v.SetDefault("security.allow_origins", []string{"*"})
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "guardian")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "guardian")
}

// loadEnvOverrides loads credential env vars that Viper doesn't pick up
// reliably through AutomaticEnv on nested keys
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Mail.Endpoint = getEnv("GUARDIAN_MAIL_ENDPOINT", cfg.Mail.Endpoint)
	cfg.Mail.APIKey = getEnv("GUARDIAN_MAIL_API_KEY", cfg.Mail.APIKey)
	cfg.Mail.From = getEnv("GUARDIAN_MAIL_FROM", cfg.Mail.From)

	cfg.Server.Address = getEnv("GUARDIAN_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("GUARDIAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("GUARDIAN_STORAGE_DATA_DIR", cfg.Storage.DataDir)

	cfg.Batch.Schedule = getEnv("GUARDIAN_BATCH_SCHEDULE", cfg.Batch.Schedule)
	cfg.Batch.Timezone = getEnv("GUARDIAN_BATCH_TIMEZONE", cfg.Batch.Timezone)

	cfg.Security.JWTSecret = getEnv("GUARDIAN_SECURITY_JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Security.ServiceToken = getEnv("GUARDIAN_SECURITY_SERVICE_TOKEN", cfg.Security.ServiceToken)
}

func validate(cfg *Config) error {
	if cfg.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required")
	}

	if _, err := time.LoadLocation(cfg.Batch.Timezone); err != nil {
		return fmt.Errorf("batch.timezone %q is invalid: %w", cfg.Batch.Timezone, err)
	}

	// Mail endpoint is optional, but a credential without an endpoint is a misconfiguration
	if cfg.Mail.Endpoint == "" && cfg.Mail.APIKey != "" {
		return fmt.Errorf("mail.api_key set without mail.endpoint")
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Location returns the reference timezone for period-window math.
// Validated at load time, so failure here falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Batch.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
