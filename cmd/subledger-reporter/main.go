package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/subledger/subledger/pkg/reporting"
)

var (
	dbURL         = flag.String("db-url", getEnv("SUBLEDGER_POSTGRES_URL", "postgres://localhost/subledger?sslmode=disable"), "PostgreSQL connection URL")
	dailySchedule = flag.String("daily-schedule", "5 0 * * *", "Cron schedule for the daily report (default: 00:05 UTC)")
	runOnce       = flag.Bool("run-once", false, "Run the report once and exit (for testing or backfills)")
	reportDate    = flag.String("date", "", "Date to report on (YYYY-MM-DD format). If empty, reports on yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	// Connect to database
	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Verify connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	aggregator := reporting.NewAggregator(db)

	// Run once mode (for testing or backfilling)
	if *runOnce {
		var date time.Time
		if *reportDate != "" {
			date, err = time.Parse("2006-01-02", *reportDate)
			if err != nil {
				log.Fatalf("Invalid date format: %v", err)
			}
		} else {
			// Default to yesterday
			date = time.Now().UTC().AddDate(0, 0, -1)
		}

		log.Printf("Running report for date: %s", date.Format("2006-01-02"))
		if err := runReport(aggregator, date); err != nil {
			log.Fatalf("Report failed: %v", err)
		}

		log.Println("Report completed successfully")
		return
	}

	// Scheduled mode
	c := cron.New()

	// Daily report job (reports on yesterday's data at 00:05 UTC)
	_, err = c.AddFunc(*dailySchedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		log.Printf("Starting daily report for %s", yesterday.Format("2006-01-02"))

		if err := runReport(aggregator, yesterday); err != nil {
			log.Printf("Daily report failed: %v", err)
		} else {
			log.Println("Daily report completed successfully")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily report: %v", err)
	}

	// Start the cron scheduler
	c.Start()
	log.Println("Subledger Reporter started")
	log.Printf("Daily report schedule: %s", *dailySchedule)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop the cron scheduler
	ctx := c.Stop()
	<-ctx.Done()

	log.Println("Reporter stopped")
}

// runReport computes the daily report and renders it as a JSON log line, the
// shape downstream log pipelines ingest.
func runReport(aggregator *reporting.Aggregator, date time.Time) error {
	ctx := context.Background()

	report, err := aggregator.RunDaily(ctx, date)
	if err != nil {
		return err
	}

	line, err := json.Marshal(report)
	if err != nil {
		return err
	}
	log.Printf("daily report: %s", line)

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
