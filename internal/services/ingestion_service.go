package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"f1-platform/internal/clients"
	"f1-platform/internal/models"
	"f1-platform/internal/repository"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// IngestionService pulls the live telemetry feeds (driver dimension,
// sessions, position samples) and lands them in PostgreSQL.
type IngestionService struct {
	repo    repository.F1Repository
	openf1  *clients.OpenF1Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains statistics for one ingestion run.
type IngestionResult struct {
	RunID            string
	Drivers          int
	Sessions         int
	SessionsFetched  int
	SessionsFailed   int
	PositionRecords  int
	Duration         time.Duration
	Errors           []string
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(repo repository.F1Repository, openf1 *clients.OpenF1Client, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		openf1:  openf1,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestYear ingests the driver dimension plus every session and its
// position samples for one year. A failed session is logged and skipped;
// the run continues with the remaining sessions.
func (s *IngestionService) IngestYear(ctx context.Context, year, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	result := &IngestionResult{
		RunID:  uuid.New().String(),
		Errors: make([]string, 0),
	}
	ctx = logging.WithRequestID(ctx, result.RunID)

	s.logger.Info(ctx, "[INGEST_START] Starting telemetry ingestion", logging.Fields{
		"year":       year,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	driverCount, err := s.ingestDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest drivers: %w", err)
	}
	result.Drivers = driverCount

	sessions, err := s.openf1.Sessions(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	result.Sessions = len(sessions)

	s.logger.Info(ctx, "[INGEST_SESSIONS] Found sessions", logging.Fields{
		"year":          year,
		"session_count": len(sessions),
		"stage":         "SESSION_DISCOVERY",
	})

	for _, session := range sessions {
		count, err := s.ingestSession(ctx, session, batchSize)
		if err != nil {
			errMsg := fmt.Sprintf("failed to ingest session %d: %v", session.SessionKey, err)
			result.Errors = append(result.Errors, errMsg)
			result.SessionsFailed++
			s.logger.Error(ctx, "[INGEST_SESSION_ERROR] Session ingestion failed", logging.Fields{
				"session_key": session.SessionKey,
				"stage":       "SESSION_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("session_error")
			continue
		}

		result.SessionsFetched++
		result.PositionRecords += count
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Telemetry ingestion completed", logging.Fields{
		"run_id":           result.RunID,
		"drivers":          result.Drivers,
		"sessions":         result.Sessions,
		"sessions_fetched": result.SessionsFetched,
		"sessions_failed":  result.SessionsFailed,
		"position_records": result.PositionRecords,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// ingestDrivers fetches the driver dimension and upserts it. The store
// keeps the first-seen row per driver number.
func (s *IngestionService) ingestDrivers(ctx context.Context) (int, error) {
	feed, err := s.openf1.Drivers(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	seen := make(map[int]bool, len(feed))
	drivers := make([]*models.Driver, 0, len(feed))

	for _, d := range feed {
		if d.DriverNumber == 0 || seen[d.DriverNumber] {
			continue
		}
		seen[d.DriverNumber] = true

		drivers = append(drivers, &models.Driver{
			DriverID:    d.DriverNumber,
			Name:        d.FullName,
			Nationality: d.CountryCode,
			Birthdate:   parseBirthdate(d.Dob),
			CreatedAt:   now,
		})
	}

	if err := s.repo.UpsertDriversBatch(ctx, drivers); err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "[INGEST_DRIVERS] Driver dimension loaded", logging.Fields{
		"feed_rows": len(feed),
		"drivers":   len(drivers),
		"stage":     "DRIVER_DIMENSION",
	})

	return len(drivers), nil
}

// ingestSession upserts one session row and lands its position samples in
// batches. Samples are stored raw, duplicates included; the analysis layer
// resolves them later.
func (s *IngestionService) ingestSession(ctx context.Context, session clients.OpenF1Session, batchSize int) (int, error) {
	if err := s.repo.UpsertSession(ctx, &models.Session{
		SessionKey:       session.SessionKey,
		MeetingKey:       session.MeetingKey,
		CircuitShortName: session.CircuitShortName,
		SessionType:      session.SessionType,
		Year:             session.Year,
		DateStart:        session.DateStart,
	}); err != nil {
		return 0, fmt.Errorf("failed to upsert session: %w", err)
	}

	samples, err := s.openf1.Positions(ctx, session.SessionKey)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch positions: %w", err)
	}

	now := time.Now().UTC()
	total := 0
	batch := make([]*models.PositionRecord, 0, batchSize)

	for _, sample := range samples {
		batch = append(batch, &models.PositionRecord{
			Date:         sample.Date,
			DriverNumber: sample.DriverNumber,
			MeetingKey:   sample.MeetingKey,
			Position:     sample.Position,
			SessionKey:   sample.SessionKey,
			CreatedAt:    now,
		})

		if len(batch) >= batchSize {
			if err := s.repo.InsertPositionsBatch(ctx, batch); err != nil {
				return total, fmt.Errorf("failed to insert batch: %w", err)
			}
			total += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.repo.InsertPositionsBatch(ctx, batch); err != nil {
			return total, fmt.Errorf("failed to insert final batch: %w", err)
		}
		total += len(batch)
	}

	s.logger.Debug(ctx, "[INGEST_SESSION_SUCCESS] Session ingested", logging.Fields{
		"session_key":      session.SessionKey,
		"session_type":     session.SessionType,
		"position_records": total,
		"stage":            "SESSION_COMPLETE",
	})

	return total, nil
}

// parseBirthdate parses the feed's YYYY-MM-DD date of birth. Missing or
// malformed values become NULL rather than failing the driver row.
func parseBirthdate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
