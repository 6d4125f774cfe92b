// Package config provides environment-driven configuration management.
package config

import (
	"fmt"
	"os"
	"sync"

	"woo-sync/internal/types"
	"woo-sync/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Constants for configuration defaults
const (
	DefaultPort                    = 3001
	DefaultHost                    = "0.0.0.0"
	DefaultReadTimeout             = 60
	DefaultWriteTimeout            = 600
	DefaultIdleTimeout             = 120
	DefaultGracefulShutdownTimeout = 10
	DefaultMaxConcurrentRequests   = 100

	DefaultPageSize              = 100
	DefaultMaxPageRetries        = 3
	DefaultRetryBackoffSeconds   = 2
	DefaultRequestTimeoutSeconds = 30
	DefaultBufferMinutes         = 60
	DefaultFirstRunLookbackHours = 48
)

// Config represents the full application configuration loaded from the environment.
type Config struct {
	Server        types.ServerConfig
	Auth          types.AuthConfig
	CORS          types.CORSConfig
	Performance   types.PerformanceConfig
	Log           types.LogConfig
	Database      types.DatabaseConfig
	Sync          types.SyncConfig
	Fee           types.FeeConfig
	RedisDSN      string
	EncryptionKey string
}

// Manager implements types.ConfigManager on top of environment variables.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new configuration manager and loads the configuration.
func NewManager() (*Manager, error) {
	// Load .env file if present. A missing file is not an error.
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	manager := &Manager{}
	if err := manager.ReloadConfig(); err != nil {
		return nil, err
	}
	return manager, nil
}

// ReloadConfig reloads the configuration from environment variables.
func (m *Manager) ReloadConfig() error {
	config := &Config{
		Server: types.ServerConfig{
			Port:                    utils.ParseInteger(os.Getenv("PORT"), DefaultPort),
			Host:                    utils.GetEnvOrDefault("HOST", DefaultHost),
			ReadTimeout:             utils.ParseInteger(os.Getenv("SERVER_READ_TIMEOUT"), DefaultReadTimeout),
			WriteTimeout:            utils.ParseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), DefaultWriteTimeout),
			IdleTimeout:             utils.ParseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), DefaultIdleTimeout),
			GracefulShutdownTimeout: utils.ParseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), DefaultGracefulShutdownTimeout),
		},
		Auth: types.AuthConfig{
			Key: os.Getenv("AUTH_KEY"),
		},
		CORS: types.CORSConfig{
			Enabled:          utils.ParseBoolean(os.Getenv("ENABLE_CORS"), true),
			AllowedOrigins:   utils.SplitAndTrim(utils.GetEnvOrDefault("ALLOWED_ORIGINS", "*"), ","),
			AllowedMethods:   utils.SplitAndTrim(utils.GetEnvOrDefault("ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"), ","),
			AllowedHeaders:   utils.SplitAndTrim(utils.GetEnvOrDefault("ALLOWED_HEADERS", "*"), ","),
			AllowCredentials: utils.ParseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		Performance: types.PerformanceConfig{
			MaxConcurrentRequests: utils.ParseInteger(os.Getenv("MAX_CONCURRENT_REQUESTS"), DefaultMaxConcurrentRequests),
		},
		Log: types.LogConfig{
			Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
			Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: utils.ParseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
		},
		Database: types.DatabaseConfig{
			DSN: utils.GetEnvOrDefault("DATABASE_DSN", "./data/woo-sync.db"),
		},
		Sync: types.SyncConfig{
			PageSize:              utils.ParseInteger(os.Getenv("SYNC_PAGE_SIZE"), DefaultPageSize),
			MaxPageRetries:        utils.ParseInteger(os.Getenv("SYNC_MAX_PAGE_RETRIES"), DefaultMaxPageRetries),
			RetryBackoffSeconds:   utils.ParseInteger(os.Getenv("SYNC_RETRY_BACKOFF_SECONDS"), DefaultRetryBackoffSeconds),
			RequestTimeoutSeconds: utils.ParseInteger(os.Getenv("SYNC_REQUEST_TIMEOUT_SECONDS"), DefaultRequestTimeoutSeconds),
			BufferMinutes:         utils.ParseInteger(os.Getenv("SYNC_BUFFER_MINUTES"), DefaultBufferMinutes),
			FirstRunLookbackHours: utils.ParseInteger(os.Getenv("SYNC_FIRST_RUN_LOOKBACK_HOURS"), DefaultFirstRunLookbackHours),
		},
		Fee: types.FeeConfig{
			PercentRate: utils.ParseFloat(os.Getenv("FEE_PERCENT_RATE"), 0.029),
			FixedCents:  utils.ParseInteger(os.Getenv("FEE_FIXED_CENTS"), 30),
		},
		RedisDSN:      os.Getenv("REDIS_DSN"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
	}

	if err := validateConfig(config); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

// validateConfig validates the configuration parameters.
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", config.Server.Port)
	}
	if config.Auth.Key == "" {
		return fmt.Errorf("AUTH_KEY is required")
	}
	if config.Performance.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max concurrent requests cannot be less than 1")
	}
	if config.Sync.PageSize < 1 || config.Sync.PageSize > 100 {
		return fmt.Errorf("sync page size must be between 1 and 100, got: %d", config.Sync.PageSize)
	}
	if config.Sync.MaxPageRetries < 1 {
		return fmt.Errorf("sync max page retries cannot be less than 1")
	}
	if config.Sync.BufferMinutes < 0 {
		return fmt.Errorf("sync buffer minutes cannot be negative")
	}
	return nil
}

func (m *Manager) snapshot() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetAuthConfig returns authentication configuration
func (m *Manager) GetAuthConfig() types.AuthConfig {
	return m.snapshot().Auth
}

// GetCORSConfig returns CORS configuration
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.snapshot().CORS
}

// GetPerformanceConfig returns performance configuration
func (m *Manager) GetPerformanceConfig() types.PerformanceConfig {
	return m.snapshot().Performance
}

// GetLogConfig returns logging configuration
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.snapshot().Log
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.snapshot().Database
}

// GetSyncConfig returns sync pipeline configuration
func (m *Manager) GetSyncConfig() types.SyncConfig {
	return m.snapshot().Sync
}

// GetFeeConfig returns fee computation configuration
func (m *Manager) GetFeeConfig() types.FeeConfig {
	return m.snapshot().Fee
}

// GetEffectiveServerConfig returns the server configuration
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.snapshot().Server
}

// GetRedisDSN returns the Redis connection string, empty when unconfigured.
func (m *Manager) GetRedisDSN() string {
	return m.snapshot().RedisDSN
}

// GetEncryptionKey returns the key used to encrypt credentials at rest.
func (m *Manager) GetEncryptionKey() string {
	return m.snapshot().EncryptionKey
}

// Validate revalidates the currently loaded configuration.
func (m *Manager) Validate() error {
	return validateConfig(m.snapshot())
}

// DisplayServerConfig logs the effective server configuration at startup.
func (m *Manager) DisplayServerConfig() {
	config := m.snapshot()
	storageType := "memory"
	if config.RedisDSN != "" {
		storageType = "redis"
	}
	logrus.Info("Effective server configuration:")
	logrus.Infof("  Listen: %s:%d", config.Server.Host, config.Server.Port)
	logrus.Infof("  Log level: %s, format: %s", config.Log.Level, config.Log.Format)
	logrus.Infof("  Storage: %s", storageType)
	logrus.Infof("  Sync: page_size=%d retries=%d buffer=%dm lookback=%dh",
		config.Sync.PageSize, config.Sync.MaxPageRetries, config.Sync.BufferMinutes, config.Sync.FirstRunLookbackHours)
}
