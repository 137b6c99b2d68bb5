package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"f1-platform/internal/models"
	"f1-platform/pkg/database"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// F1Repository provides data access for drivers, sessions, positions, and
// career standings.
type F1Repository interface {
	// Driver dimension
	UpsertDriver(ctx context.Context, driver *models.Driver) error
	UpsertDriversBatch(ctx context.Context, drivers []*models.Driver) error
	GetDriver(ctx context.Context, driverID int) (*models.Driver, error)
	ListDrivers(ctx context.Context, limit, offset int) ([]*models.Driver, int, error)

	// Sessions
	UpsertSession(ctx context.Context, session *models.Session) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]*models.Session, error)

	// Position facts
	InsertPositionsBatch(ctx context.Context, positions []*models.PositionRecord) error
	GetPositions(ctx context.Context, filter PositionFilter) ([]*models.PositionRecord, int, error)

	// Career standings
	UpsertStanding(ctx context.Context, standing *models.DriverStanding) error
	ListStandings(ctx context.Context, limit, offset int) ([]*models.DriverStanding, int, error)
	TopDriver(ctx context.Context, filter TopDriverFilter) (*models.DriverStanding, error)

	HealthCheck(ctx context.Context) error
}

// SessionFilter defines filters for querying sessions.
type SessionFilter struct {
	Year        *int
	SessionType *string
	Limit       int
	Offset      int
}

// PositionFilter defines filters for querying position records.
type PositionFilter struct {
	DriverNumber *int
	SessionKey   *int
	MeetingKey   *int
	SessionType  *string
	Limit        int
	Offset       int
}

// TopDriverFilter scopes the relational top-driver query to a year range.
type TopDriverFilter struct {
	YearFrom int
	YearTo   int
}

type f1Repository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewF1Repository creates a repository backed by PostgreSQL.
func NewF1Repository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) F1Repository {
	return &f1Repository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertDriver inserts a driver with insert-or-ignore semantics: a second
// insert with the same driver_id is a no-op, the first written name stays.
func (r *f1Repository) UpsertDriver(ctx context.Context, driver *models.Driver) error {
	query := `
		INSERT INTO drivers (driver_id, name, nationality, birthdate, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (driver_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, "upsert_driver", query,
		driver.DriverID,
		driver.Name,
		driver.Nationality,
		driver.Birthdate,
		driver.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert driver: %w", err)
	}

	return nil
}

// UpsertDriversBatch inserts drivers in one transaction, ignoring
// conflicts per row.
func (r *f1Repository) UpsertDriversBatch(ctx context.Context, drivers []*models.Driver) error {
	if len(drivers) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO drivers (driver_id, name, nationality, birthdate, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (driver_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, driver := range drivers {
		if _, err := stmt.ExecContext(ctx,
			driver.DriverID,
			driver.Name,
			driver.Nationality,
			driver.Birthdate,
			driver.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert driver %d: %w", driver.DriverID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_DRIVERS_BATCH] Driver batch inserted", logging.Fields{
		"count": len(drivers),
	})

	return nil
}

// GetDriver retrieves a driver by car number.
func (r *f1Repository) GetDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	query := `
		SELECT driver_id, name, nationality, birthdate, created_at
		FROM drivers
		WHERE driver_id = $1
	`

	var driver models.Driver
	err := r.db.GetContext(ctx, "get_driver", &driver, query, driverID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "driver",
			ID:       strconv.Itoa(driverID),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	return &driver, nil
}

// ListDrivers retrieves the driver dimension with pagination and the
// total row count.
func (r *f1Repository) ListDrivers(ctx context.Context, limit, offset int) ([]*models.Driver, int, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, "count_drivers", &totalCount,
		"SELECT COUNT(*) FROM drivers"); err != nil {
		return nil, 0, fmt.Errorf("failed to count drivers: %w", err)
	}

	query := `
		SELECT driver_id, name, nationality, birthdate, created_at
		FROM drivers
		ORDER BY driver_id
		LIMIT $1 OFFSET $2
	`

	var drivers []*models.Driver
	if err := r.db.SelectContext(ctx, "list_drivers", &drivers, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list drivers: %w", err)
	}

	return drivers, totalCount, nil
}

// UpsertSession inserts a session, ignoring duplicates by session_key.
func (r *f1Repository) UpsertSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (session_key, meeting_key, circuit_short_name, session_type, year, date_start)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_key) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, "upsert_session", query,
		session.SessionKey,
		session.MeetingKey,
		session.CircuitShortName,
		session.SessionType,
		session.Year,
		session.DateStart,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// ListSessions retrieves sessions with optional year and type filters.
func (r *f1Repository) ListSessions(ctx context.Context, filter SessionFilter) ([]*models.Session, error) {
	query := `
		SELECT session_key, meeting_key, circuit_short_name, session_type, year, date_start
		FROM sessions
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.Year != nil {
		query += fmt.Sprintf(" AND year = $%d", argNum)
		args = append(args, *filter.Year)
		argNum++
	}

	if filter.SessionType != nil {
		query += fmt.Sprintf(" AND session_type = $%d", argNum)
		args = append(args, *filter.SessionType)
		argNum++
	}

	query += " ORDER BY date_start"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var sessions []*models.Session
	if err := r.db.SelectContext(ctx, "list_sessions", &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

// InsertPositionsBatch inserts position samples in one transaction. The
// positions table declares no natural unique key, so duplicate samples are
// stored as-is and resolved by downstream deduplication.
func (r *f1Repository) InsertPositionsBatch(ctx context.Context, positions []*models.PositionRecord) error {
	if len(positions) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.IngestionBatchSize.Observe(float64(len(positions)))
		r.logger.Debug(ctx, "[REPO_POSITIONS_BATCH] Batch insert completed", logging.Fields{
			"count":       len(positions),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (date, driver_number, meeting_key, position, session_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, pos := range positions {
		if _, err := stmt.ExecContext(ctx,
			pos.Date,
			pos.DriverNumber,
			pos.MeetingKey,
			pos.Position,
			pos.SessionKey,
			pos.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(positions)))

	return nil
}

// GetPositions retrieves position records with filtering and pagination.
// The session type filter joins through the sessions table.
func (r *f1Repository) GetPositions(ctx context.Context, filter PositionFilter) ([]*models.PositionRecord, int, error) {
	query := `
		SELECT p.id, p.date, p.driver_number, p.meeting_key, p.position, p.session_key, p.created_at
		FROM positions p
	`
	if filter.SessionType != nil {
		query += " JOIN sessions s ON s.session_key = p.session_key"
	}
	query += " WHERE 1=1"

	args := []interface{}{}
	argNum := 1

	if filter.DriverNumber != nil {
		query += fmt.Sprintf(" AND p.driver_number = $%d", argNum)
		args = append(args, *filter.DriverNumber)
		argNum++
	}

	if filter.SessionKey != nil {
		query += fmt.Sprintf(" AND p.session_key = $%d", argNum)
		args = append(args, *filter.SessionKey)
		argNum++
	}

	if filter.MeetingKey != nil {
		query += fmt.Sprintf(" AND p.meeting_key = $%d", argNum)
		args = append(args, *filter.MeetingKey)
		argNum++
	}

	if filter.SessionType != nil {
		query += fmt.Sprintf(" AND s.session_type = $%d", argNum)
		args = append(args, *filter.SessionType)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_positions", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count positions: %w", err)
	}

	query += " ORDER BY p.date, p.driver_number"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var positions []*models.PositionRecord
	if err := r.db.SelectContext(ctx, "get_positions", &positions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get positions: %w", err)
	}

	return positions, totalCount, nil
}

// UpsertStanding creates or replaces the career counters for a driver.
func (r *f1Repository) UpsertStanding(ctx context.Context, standing *models.DriverStanding) error {
	query := `
		INSERT INTO driver_standings (driver_id, name, wins, podiums, pole_positions, points)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (driver_id) DO UPDATE SET
			wins = EXCLUDED.wins,
			podiums = EXCLUDED.podiums,
			pole_positions = EXCLUDED.pole_positions,
			points = EXCLUDED.points
	`

	_, err := r.db.ExecContext(ctx, "upsert_standing", query,
		standing.DriverID,
		standing.Name,
		standing.Wins,
		standing.Podiums,
		standing.Poles,
		standing.Points,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert standing: %w", err)
	}

	return nil
}

// ListStandings retrieves career standings in leaderboard order (wins,
// then poles, then podiums, all descending) with the total row count.
func (r *f1Repository) ListStandings(ctx context.Context, limit, offset int) ([]*models.DriverStanding, int, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, "count_standings", &totalCount,
		"SELECT COUNT(*) FROM driver_standings"); err != nil {
		return nil, 0, fmt.Errorf("failed to count standings: %w", err)
	}

	query := `
		SELECT driver_id, name, wins, podiums, pole_positions, points
		FROM driver_standings
		ORDER BY wins DESC, pole_positions DESC, podiums DESC, driver_id
		LIMIT $1 OFFSET $2
	`

	var standings []*models.DriverStanding
	if err := r.db.SelectContext(ctx, "list_standings", &standings, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list standings: %w", err)
	}

	return standings, totalCount, nil
}

// TopDriver answers the leader question directly against the persisted
// store: wins, podiums, and poles derived by grouping position facts per
// driver within a year range, ordered wins DESC, poles DESC, podiums DESC.
// The positions table allows duplicate samples per session, so the CTE
// first picks one representative row per (driver, session) before any
// counting: the earliest sample, the same representative the in-memory
// dedup keeps. Sprint sessions count race-like. Must agree with the
// in-memory ranking for the same rows.
func (r *f1Repository) TopDriver(ctx context.Context, filter TopDriverFilter) (*models.DriverStanding, error) {
	query := `
		WITH representative AS (
			SELECT DISTINCT ON (p.driver_number, p.session_key)
				p.driver_number,
				p.session_key,
				p.position
			FROM positions p
			ORDER BY p.driver_number, p.session_key, p.date, p.id
		)
		SELECT
			d.driver_id::text AS driver_id,
			d.name,
			COUNT(*) FILTER (WHERE s.session_type IN ('Race', 'Sprint') AND rep.position = 1) AS wins,
			COUNT(*) FILTER (WHERE s.session_type IN ('Race', 'Sprint') AND rep.position <= 3) AS podiums,
			COUNT(*) FILTER (WHERE s.session_type = 'Qualifying' AND rep.position = 1) AS pole_positions
		FROM drivers d
		JOIN representative rep ON rep.driver_number = d.driver_id
		JOIN sessions s ON s.session_key = rep.session_key
		WHERE s.year BETWEEN $1 AND $2
		GROUP BY d.driver_id, d.name
		ORDER BY wins DESC, pole_positions DESC, podiums DESC, d.driver_id
		LIMIT 1
	`

	var standing models.DriverStanding
	err := r.db.GetContext(ctx, "top_driver", &standing, query, filter.YearFrom, filter.YearTo)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "top_driver",
			ID:       fmt.Sprintf("%d-%d", filter.YearFrom, filter.YearTo),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query top driver: %w", err)
	}

	return &standing, nil
}

// HealthCheck performs a repository health check.
func (r *f1Repository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
