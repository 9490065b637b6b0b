package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/subledger/subledger/pkg/archive"
	"github.com/subledger/subledger/pkg/catalog"
	"github.com/subledger/subledger/pkg/config"
	"github.com/subledger/subledger/pkg/engine"
	"github.com/subledger/subledger/pkg/observability"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/storage"
	"github.com/subledger/subledger/pkg/storage/postgres"
	"github.com/subledger/subledger/pkg/usage"
)

func main() {
	envFile := flag.String("env-file", "", "Optional .env file to load before reading configuration")
	flag.Parse()

	procLog := logrus.New()
	procLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			procLog.Fatalf("Failed to load env file %s: %v", *envFile, err)
		}
	} else if err := godotenv.Load(); err == nil {
		procLog.Info("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		procLog.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx := context.Background()

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		procLog.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	// Record store. Postgres migrates on startup; memory needs nothing.
	var store storage.Store
	var pgStore *postgres.Store
	switch cfg.Storage.Type {
	case "postgres":
		pgStore, err = postgres.Open(cfg.Storage.Postgres)
		if err != nil {
			procLog.Fatalf("Failed to open postgres store: %v", err)
		}
		if err := pgStore.Migrate(ctx); err != nil {
			procLog.Fatalf("Failed to migrate postgres store: %v", err)
		}
		store = pgStore
		procLog.Infof("Record store: postgres (%d max conns)", cfg.Storage.Postgres.MaxConns)
	default:
		store = storage.NewMemoryStore()
		procLog.Info("Record store: memory")
	}

	// Usage counter store.
	var usageStore usage.Store
	var sqliteStore *usage.SQLiteStore
	var redisClient *redis.Client
	switch cfg.Usage.Type {
	case "sqlite":
		sqliteStore, err = usage.NewSQLiteStore(cfg.Usage.SQLiteDSN)
		if err != nil {
			procLog.Fatalf("Failed to open sqlite usage store: %v", err)
		}
		if err := sqliteStore.Migrate(); err != nil {
			procLog.Fatalf("Failed to migrate sqlite usage store: %v", err)
		}
		usageStore = sqliteStore
		procLog.Infof("Usage store: sqlite (%s)", cfg.Usage.SQLiteDSN)
	case "redis":
		redisStore, err := usage.NewRedisStore(cfg.Usage.RedisURL)
		if err != nil {
			procLog.Fatalf("Failed to connect to redis usage store: %v", err)
		}
		usageStore = redisStore
		redisClient = redisStore.Client()
		procLog.Info("Usage store: redis")
	default:
		usageStore = usage.NewMemoryStore()
		procLog.Info("Usage store: memory")
	}

	// Plan catalog, either built-in tiers or a YAML seed.
	cat := catalog.Default()
	if cfg.Catalog.SeedPath != "" {
		plans, err := catalog.LoadFile(cfg.Catalog.SeedPath)
		if err != nil {
			procLog.Fatalf("Failed to load catalog seed %s: %v", cfg.Catalog.SeedPath, err)
		}
		cat, err = catalog.New(plans...)
		if err != nil {
			procLog.Fatalf("Failed to build catalog from seed: %v", err)
		}
		procLog.Infof("Catalog seeded from %s", cfg.Catalog.SeedPath)
	}

	seed := cfg.Billing.GatewaySeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gateway := payment.NewSimGateway(cfg.Billing.GatewaySuccessRate, seed)

	var archiver archive.Archiver
	switch cfg.Archive.Type {
	case "filesystem":
		archiver, err = archive.NewFileArchiver(cfg.Archive.Root)
		if err != nil {
			procLog.Fatalf("Failed to initialize filesystem archiver: %v", err)
		}
		procLog.Infof("Invoice archive: filesystem (%s)", cfg.Archive.Root)
	case "s3":
		archiver, err = archive.NewS3Archiver(ctx, cfg.Archive.S3)
		if err != nil {
			procLog.Fatalf("Failed to initialize S3 archiver: %v", err)
		}
		procLog.Infof("Invoice archive: s3 (%s)", cfg.Archive.S3.Bucket)
	}

	eng := engine.New(engine.Config{
		Catalog:       cat,
		Store:         store,
		Meter:         usage.NewMeter(usageStore),
		Gateway:       gateway,
		Logger:        logger,
		Metrics:       metrics,
		Archiver:      archiver,
		ChargeTimeout: cfg.Billing.ChargeTimeout,
	})
	procLog.Infof("Billing engine ready with %d plans", len(eng.ListPlans(ctx)))

	// Ops plane: health probes and metrics. Engine operations are invoked
	// in-process by the embedding application, not routed over HTTP.
	var db *sql.DB
	if pgStore != nil {
		db = pgStore.DB()
	}
	checker := observability.NewHealthChecker(db, redisClient, cfg.Observability.OTelServiceVersion)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
	if registry != nil {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.OpsPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sm := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	if pgStore != nil {
		sm.Register("record store", func(ctx context.Context) error {
			return pgStore.Close()
		})
	}
	if sqliteStore != nil {
		sm.Register("usage store", func(ctx context.Context) error {
			return sqliteStore.Close()
		})
	}
	if redisClient != nil {
		sm.Register("usage store", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		sm.Register("tracing", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	go func() {
		procLog.Infof("Ops server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			procLog.Fatalf("Ops server failed: %v", err)
		}
	}()

	if err := sm.WaitForShutdown(); err != nil {
		procLog.Fatalf("Shutdown failed: %v", err)
	}
}
