package types

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetAuthConfig() AuthConfig
	GetCORSConfig() CORSConfig
	GetPerformanceConfig() PerformanceConfig
	GetLogConfig() LogConfig
	GetDatabaseConfig() DatabaseConfig
	GetSyncConfig() SyncConfig
	GetFeeConfig() FeeConfig
	GetEncryptionKey() string
	GetEffectiveServerConfig() ServerConfig
	GetRedisDSN() string
	Validate() error
	DisplayServerConfig()
	ReloadConfig() error
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port                    int    `json:"port"`
	Host                    string `json:"host"`
	ReadTimeout             int    `json:"read_timeout"`
	WriteTimeout            int    `json:"write_timeout"`
	IdleTimeout             int    `json:"idle_timeout"`
	GracefulShutdownTimeout int    `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Key string `json:"key"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// PerformanceConfig represents performance configuration
type PerformanceConfig struct {
	MaxConcurrentRequests int `json:"max_concurrent_requests"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	EnableFile bool   `json:"enable_file"`
	FilePath   string `json:"file_path"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// SyncConfig holds the tuning knobs for the order sync pipeline.
// The buffer window started at a few minutes and was widened to an hour
// after gaps were observed between order creation and API read visibility.
type SyncConfig struct {
	PageSize              int `json:"page_size"`
	MaxPageRetries        int `json:"max_page_retries"`
	RetryBackoffSeconds   int `json:"retry_backoff_seconds"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
	BufferMinutes         int `json:"buffer_minutes"`
	FirstRunLookbackHours int `json:"first_run_lookback_hours"`
}

// FeeConfig defines how per-order platform fees are computed for reports.
type FeeConfig struct {
	PercentRate float64 `json:"percent_rate"`
	FixedCents  int     `json:"fixed_cents"`
}
