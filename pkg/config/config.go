package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subledger/subledger/pkg/archive"
	"github.com/subledger/subledger/pkg/observability"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Record storage configuration
	Storage StorageConfig

	// Usage counter storage configuration
	Usage UsageConfig

	// Billing and gateway configuration
	Billing BillingConfig

	// Plan catalog configuration
	Catalog CatalogConfig

	// Invoice archive configuration
	Archive ArchiveConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds the ops HTTP server configuration. The ops server only
// serves health probes and metrics.
type ServerConfig struct {
	Host            string
	OpsPort         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	// Type is "memory" or "postgres"
	Type string

	Postgres postgres.Config
}

// UsageConfig selects the usage counter backend.
type UsageConfig struct {
	// Type is "memory", "sqlite" or "redis"
	Type string

	SQLiteDSN string
	RedisURL  string
}

// BillingConfig holds payment gateway settings. Tax rate, due dates and
// cycle math are domain constants, not configuration.
type BillingConfig struct {
	// ChargeTimeout bounds a single gateway charge. Zero keeps the
	// processor default.
	ChargeTimeout time.Duration

	// GatewaySuccessRate drives the simulated gateway, 0 to 1.
	GatewaySuccessRate float64

	// GatewaySeed fixes the simulated gateway's outcome sequence. Zero
	// seeds from the clock at startup.
	GatewaySeed int64
}

// CatalogConfig holds plan catalog settings.
type CatalogConfig struct {
	// SeedPath points at a YAML plan seed file. Empty uses the built-in
	// four-tier catalog.
	SeedPath string
}

// ArchiveConfig selects where paid invoices are archived.
type ArchiveConfig struct {
	// Type is "none", "filesystem" or "s3"
	Type string

	// Root is the directory for the filesystem archiver.
	Root string

	S3 archive.S3Config
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelSampleRatio    float64
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Usage:         loadUsageConfig(),
		Billing:       loadBillingConfig(),
		Catalog:       loadCatalogConfig(),
		Archive:       loadArchiveConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SUBLEDGER_HOST", "0.0.0.0"),
		OpsPort:         getEnv("SUBLEDGER_OPS_PORT", "9090"),
		ReadTimeout:     getEnvDuration("SUBLEDGER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SUBLEDGER_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("SUBLEDGER_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadStorageConfig loads record store configuration from environment
func loadStorageConfig() StorageConfig {
	cfg := StorageConfig{
		Type:     getEnv("SUBLEDGER_STORAGE_TYPE", "memory"),
		Postgres: postgres.DefaultConfig(),
	}

	if pgURL := getEnv("SUBLEDGER_POSTGRES_URL", ""); pgURL != "" {
		cfg.Postgres.URL = pgURL
	}
	if maxConns := getEnvInt("SUBLEDGER_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.Postgres.MaxConns = maxConns
	}
	if minConns := getEnvInt("SUBLEDGER_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.Postgres.MinConns = minConns
	}
	if timeout := getEnvDuration("SUBLEDGER_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Postgres.Timeout = timeout
	}
	if lifetime := getEnvDuration("SUBLEDGER_POSTGRES_MAX_LIFETIME", 0); lifetime > 0 {
		cfg.Postgres.MaxLifetime = lifetime
	}
	if idle := getEnvDuration("SUBLEDGER_POSTGRES_MAX_IDLE_TIME", 0); idle > 0 {
		cfg.Postgres.MaxIdleTime = idle
	}

	return cfg
}

// loadUsageConfig loads usage counter configuration from environment
func loadUsageConfig() UsageConfig {
	return UsageConfig{
		Type:      getEnv("SUBLEDGER_USAGE_TYPE", "memory"),
		SQLiteDSN: getEnv("SUBLEDGER_SQLITE_DSN", ""),
		RedisURL:  getEnv("SUBLEDGER_REDIS_URL", ""),
	}
}

// loadBillingConfig loads gateway configuration from environment
func loadBillingConfig() BillingConfig {
	return BillingConfig{
		ChargeTimeout:      getEnvDuration("SUBLEDGER_CHARGE_TIMEOUT", 0),
		GatewaySuccessRate: getEnvFloat("SUBLEDGER_GATEWAY_SUCCESS_RATE", payment.DefaultSuccessRate),
		GatewaySeed:        getEnvInt64("SUBLEDGER_GATEWAY_SEED", 0),
	}
}

// loadCatalogConfig loads plan catalog configuration from environment
func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		SeedPath: getEnv("SUBLEDGER_CATALOG_SEED", ""),
	}
}

// loadArchiveConfig loads invoice archive configuration from environment
func loadArchiveConfig() ArchiveConfig {
	cfg := ArchiveConfig{
		Type: getEnv("SUBLEDGER_ARCHIVE_TYPE", "none"),
		Root: getEnv("SUBLEDGER_ARCHIVE_ROOT", ""),
	}

	cfg.S3 = archive.S3Config{
		Region:       getEnv("SUBLEDGER_S3_REGION", ""),
		Bucket:       getEnv("SUBLEDGER_S3_BUCKET", ""),
		Prefix:       getEnv("SUBLEDGER_S3_PREFIX", "invoices"),
		AccessKey:    getEnv("SUBLEDGER_S3_ACCESS_KEY", ""),
		SecretKey:    getEnv("SUBLEDGER_S3_SECRET_KEY", ""),
		Endpoint:     getEnv("SUBLEDGER_S3_ENDPOINT", ""),
		UsePathStyle: getEnvBool("SUBLEDGER_S3_USE_PATH_STYLE", false),
	}

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLevel(getEnv("SUBLEDGER_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SUBLEDGER_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SUBLEDGER_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SUBLEDGER_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SUBLEDGER_OTEL_SERVICE_NAME", "subledger"),
		OTelServiceVersion: getEnv("SUBLEDGER_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelSampleRatio:    getEnvFloat("SUBLEDGER_OTEL_SAMPLE_RATIO", 1.0),
		OTelInsecure:       getEnvBool("SUBLEDGER_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}

	// Validate record store config based on type
	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	// Validate usage counter config based on type
	switch c.Usage.Type {
	case "memory":
	case "sqlite":
		if c.Usage.SQLiteDSN == "" {
			return fmt.Errorf("sqlite DSN is required for sqlite usage storage")
		}
	case "redis":
		if c.Usage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis usage storage")
		}
	default:
		return fmt.Errorf("invalid usage storage type: %s (must be memory, sqlite, or redis)", c.Usage.Type)
	}

	// Validate gateway config
	if c.Billing.ChargeTimeout < 0 {
		return fmt.Errorf("charge timeout must not be negative")
	}
	if c.Billing.GatewaySuccessRate < 0 || c.Billing.GatewaySuccessRate > 1 {
		return fmt.Errorf("gateway success rate must be between 0 and 1")
	}

	// Validate archive config based on type
	switch c.Archive.Type {
	case "none":
	case "filesystem":
		if c.Archive.Root == "" {
			return fmt.Errorf("archive root is required for filesystem archiving")
		}
	case "s3":
		if c.Archive.S3.Bucket == "" || c.Archive.S3.Region == "" {
			return fmt.Errorf("S3 bucket and region are required for s3 archiving")
		}
	default:
		return fmt.Errorf("invalid archive type: %s (must be none, filesystem, or s3)", c.Archive.Type)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
