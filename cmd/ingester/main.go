package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"f1-platform/internal/clients"
	"f1-platform/internal/config"
	"f1-platform/internal/repository"
	"f1-platform/internal/services"
	"f1-platform/pkg/database"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	year := flag.Int("year", time.Now().UTC().Year(), "Season year to ingest telemetry for")
	batchSize := flag.Int("batch-size", 0, "Records per insert batch (default from config)")
	rebuildStandings := flag.Bool("standings", false, "Rebuild career standings from the results archive")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *batchSize <= 0 {
		*batchSize = cfg.Ingestion.BatchSize
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("f1-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting telemetry ingestion", logging.Fields{
		"version":    "1.0.0",
		"year":       *year,
		"batch_size": *batchSize,
		"standings":  *rebuildStandings,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("f1_ingester")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime(),
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository and clients
	repo := repository.NewF1Repository(db, logger, metricsCollector)
	openf1 := clients.NewOpenF1Client(cfg.Ingestion.OpenF1BaseURL, cfg.Ingestion.HTTPTimeout(), cfg.Ingestion.RetryMax, logger, metricsCollector)

	// Ingest telemetry
	ingestionService := services.NewIngestionService(repo, openf1, logger, metricsCollector)
	result, err := ingestionService.IngestYear(ctx, *year, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"year": *year,
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:           %s\n", result.RunID)
	fmt.Printf("Drivers:          %d\n", result.Drivers)
	fmt.Printf("Sessions Found:   %d\n", result.Sessions)
	fmt.Printf("Sessions Loaded:  %d\n", result.SessionsFetched)
	fmt.Printf("Sessions Failed:  %d\n", result.SessionsFailed)
	fmt.Printf("Position Records: %d\n", result.PositionRecords)
	fmt.Printf("Duration:         %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	// Rebuild standings if requested
	if *rebuildStandings {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("REBUILDING CAREER STANDINGS")
		fmt.Println(strings.Repeat("=", 80))

		ergast := clients.NewErgastClient(cfg.Ingestion.ErgastBaseURL, cfg.Ingestion.HTTPTimeout(), cfg.Ingestion.RetryMax, logger, metricsCollector)
		standingsService := services.NewStandingsService(repo, ergast, logger, metricsCollector)

		standingsResult, err := standingsService.RebuildStandings(ctx,
			cfg.Ingestion.SeasonFrom, cfg.Ingestion.SeasonTo, cfg.Ingestion.Workers)
		if err != nil {
			logger.Error(ctx, "[STANDINGS_ERROR] Standings rebuild failed", logging.Fields{}, err)
			fmt.Printf("Standings rebuild failed: %v\n", err)
		} else {
			fmt.Printf("Seasons Loaded:  %d/%d\n", standingsResult.SeasonsFetched, standingsResult.Seasons)
			fmt.Printf("Drivers:         %d\n", standingsResult.Drivers)
			fmt.Printf("Duration:        %v\n", standingsResult.Duration)

			if leader, err := standingsService.TopDriver(ctx); err == nil {
				fmt.Printf("Top Driver:      %s (%d wins, %d podiums, %d poles)\n",
					leader.Name, leader.Wins, leader.Podiums, leader.Poles)
			}
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"run_id":           result.RunID,
		"sessions_loaded":  result.SessionsFetched,
		"position_records": result.PositionRecords,
		"duration_seconds": result.Duration.Seconds(),
	})
}
