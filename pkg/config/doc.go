// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables
// with sensible defaults for all settings. Domain constants such as the tax
// rate and invoice due dates are deliberately not configurable.
//
// # Configuration Structure
//
// Server settings:
//
//	SUBLEDGER_HOST="0.0.0.0"
//	SUBLEDGER_OPS_PORT="9090"
//	SUBLEDGER_READ_TIMEOUT="15s"
//	SUBLEDGER_WRITE_TIMEOUT="15s"
//	SUBLEDGER_SHUTDOWN_TIMEOUT="30s"
//
// Record storage settings:
//
//	SUBLEDGER_STORAGE_TYPE="postgres"  # memory, postgres
//	SUBLEDGER_POSTGRES_URL="postgres://localhost/subledger"
//	SUBLEDGER_POSTGRES_MAX_CONNS="20"
//
// Usage counter settings:
//
//	SUBLEDGER_USAGE_TYPE="redis"  # memory, sqlite, redis
//	SUBLEDGER_SQLITE_DSN="/var/subledger/usage.db"
//	SUBLEDGER_REDIS_URL="redis://localhost:6379"
//
// Billing settings:
//
//	SUBLEDGER_CHARGE_TIMEOUT="30s"
//	SUBLEDGER_GATEWAY_SUCCESS_RATE="0.9"
//	SUBLEDGER_GATEWAY_SEED="0"
//
// Catalog and archive settings:
//
//	SUBLEDGER_CATALOG_SEED="/etc/subledger/plans.yaml"
//	SUBLEDGER_ARCHIVE_TYPE="s3"  # none, filesystem, s3
//	SUBLEDGER_ARCHIVE_ROOT="/var/subledger/invoices"
//	SUBLEDGER_S3_BUCKET="subledger-invoices"
//	SUBLEDGER_S3_REGION="us-east-1"
//
// Observability settings:
//
//	SUBLEDGER_LOG_LEVEL="info"  # debug, info, warn, error
//	SUBLEDGER_METRICS_ENABLED="true"
//	SUBLEDGER_OTEL_ENABLED="true"
//	SUBLEDGER_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Ops server: %s:%s\n", cfg.Server.Host, cfg.Server.OpsPort)
//	fmt.Printf("Storage: %s\n", cfg.Storage.Type)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage/postgres: consumes the postgres pool configuration
//   - pkg/archive: consumes the S3 archive configuration
//   - pkg/observability: consumes log level and OTel settings
package config
