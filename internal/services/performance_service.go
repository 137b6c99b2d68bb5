package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"f1-platform/internal/analysis"
	"f1-platform/internal/models"
	"f1-platform/internal/repository"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// snapshotPageSize bounds each positions query during a snapshot rebuild.
const snapshotPageSize = 10000

// PerformanceService runs the aggregation pipeline over an explicit
// snapshot of the position facts. The snapshot is built once at startup
// and on demand via Refresh; every read query serves from it without
// touching the database. Reads are concurrent, rebuilds swap the snapshot
// atomically under the write lock.
type PerformanceService struct {
	repo        repository.F1Repository
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
	trendWindow int

	mu   sync.RWMutex
	snap *snapshot
}

// snapshot is one immutable view of the position facts, already joined to
// their session context.
type snapshot struct {
	builtAt time.Time
	records []analysis.Record
}

// DriverPerformance is one driver's aggregate row for the query layer.
type DriverPerformance struct {
	Driver       string         `json:"driver"`
	RecordCount  int            `json:"record_count"`
	EventCount   int            `json:"event_count"`
	TotalPoints  int            `json:"total_points"`
	MeanPosition *float64       `json:"mean_position,omitempty"`
	MinPosition  *int           `json:"min_position,omitempty"`
	MaxPosition  *int           `json:"max_position,omitempty"`
	Wins         int            `json:"wins"`
	Podiums      int            `json:"podiums"`
	Poles        int            `json:"poles"`
	MeanLapTime  *time.Duration `json:"-"`
}

// NewPerformanceService creates the service with an empty snapshot. Call
// Refresh before serving queries.
func NewPerformanceService(repo repository.F1Repository, trendWindow int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PerformanceService {
	return &PerformanceService{
		repo:        repo,
		logger:      logger,
		metrics:     metricsCollector,
		trendWindow: trendWindow,
		snap:        &snapshot{},
	}
}

// Refresh rebuilds the snapshot from the positions table. Readers keep
// serving the previous snapshot until the new one is swapped in.
func (s *PerformanceService) Refresh(ctx context.Context) error {
	startTime := time.Now()

	sessionTypes, err := s.loadSessionTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	records, err := s.loadRecords(ctx, sessionTypes)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	s.mu.Lock()
	s.snap = &snapshot{
		builtAt: time.Now().UTC(),
		records: records,
	}
	s.mu.Unlock()

	s.metrics.AnalysisSnapshotRows.Set(float64(len(records)))
	s.metrics.AnalysisSnapshotAgeSec.Set(0)

	s.logger.Info(ctx, "[SNAPSHOT_REFRESH] Analysis snapshot rebuilt", logging.Fields{
		"rows":             len(records),
		"sessions":         len(sessionTypes),
		"duration_seconds": time.Since(startTime).Seconds(),
	})

	return nil
}

// RefreshFromRecords installs an externally built record set as the
// snapshot. Used by the file-based analysis path.
func (s *PerformanceService) RefreshFromRecords(records []analysis.Record) {
	s.mu.Lock()
	s.snap = &snapshot{
		builtAt: time.Now().UTC(),
		records: records,
	}
	s.mu.Unlock()

	s.metrics.AnalysisSnapshotRows.Set(float64(len(records)))
	s.metrics.AnalysisSnapshotAgeSec.Set(0)
}

// SnapshotInfo reports the snapshot's build time and row count, and
// refreshes the age gauge as a side effect.
func (s *PerformanceService) SnapshotInfo() (time.Time, int) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	if !snap.builtAt.IsZero() {
		s.metrics.AnalysisSnapshotAgeSec.Set(time.Since(snap.builtAt).Seconds())
	}

	return snap.builtAt, len(snap.records)
}

// Aggregates runs the pipeline over the snapshot for one session context.
// Year bounds of zero are unbounded. Results are sorted by total points
// descending, then driver, for a stable presentation order.
func (s *PerformanceService) Aggregates(sessionType string, yearFrom, yearTo int) []*DriverPerformance {
	timer := time.Now()
	defer func() {
		s.metrics.AnalysisRunDuration.Observe(time.Since(timer).Seconds())
	}()

	records := s.selectRecords(sessionType, yearFrom, yearTo)
	aggregates := analysis.Aggregate(analysis.Dedupe(records), sessionType)

	results := make([]*DriverPerformance, 0, len(aggregates))
	for _, agg := range aggregates {
		results = append(results, &DriverPerformance{
			Driver:       agg.Driver,
			RecordCount:  agg.RecordCount,
			EventCount:   agg.EventCount,
			TotalPoints:  agg.TotalPoints,
			MeanPosition: agg.MeanPosition,
			MinPosition:  agg.MinPosition,
			MaxPosition:  agg.MaxPosition,
			Wins:         agg.Wins,
			Podiums:      agg.Podiums,
			Poles:        agg.Poles,
			MeanLapTime:  agg.MeanLapTime,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalPoints != results[j].TotalPoints {
			return results[i].TotalPoints > results[j].TotalPoints
		}
		return results[i].Driver < results[j].Driver
	})

	return results
}

// Leader combines race and qualifying aggregates from the snapshot into
// per-driver standings and returns the top driver under the canonical
// ordering: wins, then poles, then podiums, all descending.
func (s *PerformanceService) Leader(yearFrom, yearTo int) (models.DriverStanding, error) {
	race := analysis.Aggregate(analysis.Dedupe(s.selectRecords(models.SessionTypeRace, yearFrom, yearTo)), models.SessionTypeRace)
	sprint := analysis.Aggregate(analysis.Dedupe(s.selectRecords(models.SessionTypeSprint, yearFrom, yearTo)), models.SessionTypeSprint)
	qualifying := analysis.Aggregate(analysis.Dedupe(s.selectRecords(models.SessionTypeQualifying, yearFrom, yearTo)), models.SessionTypeQualifying)

	merged := make(map[string]*models.DriverStanding)
	standing := func(driver string) *models.DriverStanding {
		st, ok := merged[driver]
		if !ok {
			st = &models.DriverStanding{DriverID: driver, Name: driver}
			merged[driver] = st
		}
		return st
	}

	for driver, agg := range race {
		st := standing(driver)
		st.Wins += agg.Wins
		st.Podiums += agg.Podiums
	}
	for driver, agg := range sprint {
		st := standing(driver)
		st.Wins += agg.Wins
		st.Podiums += agg.Podiums
	}
	for driver, agg := range qualifying {
		standing(driver).Poles += agg.Poles
	}

	standings := make([]models.DriverStanding, 0, len(merged))
	for _, st := range merged {
		standings = append(standings, *st)
	}

	return analysis.Leader(standings)
}

// DriverTrend computes the rolling position trend for one driver over the
// snapshot's race records.
func (s *PerformanceService) DriverTrend(driverNumber int) []analysis.TrendPoint {
	driver := strconv.Itoa(driverNumber)

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	records := make([]analysis.Record, 0)
	for _, rec := range snap.records {
		if rec.Driver == driver && rec.Session == models.SessionTypeRace {
			records = append(records, rec)
		}
	}

	return analysis.Trend(records, s.trendWindow)
}

// selectRecords copies the snapshot records matching a session context and
// year range. Zero year bounds are unbounded.
func (s *PerformanceService) selectRecords(sessionType string, yearFrom, yearTo int) []analysis.Record {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	records := make([]analysis.Record, 0)
	for _, rec := range snap.records {
		if sessionType != "" && rec.Session != sessionType {
			continue
		}
		if yearFrom != 0 && rec.Date.Year() < yearFrom {
			continue
		}
		if yearTo != 0 && rec.Date.Year() > yearTo {
			continue
		}
		records = append(records, rec)
	}

	return records
}

// loadSessionTypes builds the session_key → session_type join map.
func (s *PerformanceService) loadSessionTypes(ctx context.Context) (map[int]string, error) {
	types := make(map[int]string)

	for offset := 0; ; offset += snapshotPageSize {
		sessions, err := s.repo.ListSessions(ctx, repository.SessionFilter{
			Limit:  snapshotPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}

		for _, session := range sessions {
			types[session.SessionKey] = session.SessionType
		}

		if len(sessions) < snapshotPageSize {
			return types, nil
		}
	}
}

// loadRecords pages through the positions table and converts each sample
// into an analysis record joined to its session context. Samples whose
// session is unknown keep an empty context and fall out of the race and
// qualifying queries.
func (s *PerformanceService) loadRecords(ctx context.Context, sessionTypes map[int]string) ([]analysis.Record, error) {
	var records []analysis.Record

	for offset := 0; ; offset += snapshotPageSize {
		page, _, err := s.repo.GetPositions(ctx, repository.PositionFilter{
			Limit:  snapshotPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}

		for _, row := range page {
			sessionType := sessionTypes[row.SessionKey]
			records = append(records, analysis.Record{
				Driver:   strconv.Itoa(row.DriverNumber),
				Event:    strconv.Itoa(row.MeetingKey),
				Session:  sessionType,
				Date:     row.Date,
				Position: row.Position,
				Sprint:   sessionType == models.SessionTypeSprint,
			})
		}

		if len(page) < snapshotPageSize {
			return records, nil
		}
	}
}
