package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"f1-platform/internal/analysis"
	"f1-platform/internal/models"
	"f1-platform/internal/repository"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// fakeRepo is an in-memory F1Repository for service tests.
type fakeRepo struct {
	drivers   []*models.Driver
	sessions  []*models.Session
	positions []*models.PositionRecord
	standings map[string]*models.DriverStanding
	healthErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{standings: make(map[string]*models.DriverStanding)}
}

func (f *fakeRepo) UpsertDriver(ctx context.Context, driver *models.Driver) error {
	for _, existing := range f.drivers {
		if existing.DriverID == driver.DriverID {
			return nil
		}
	}
	f.drivers = append(f.drivers, driver)
	return nil
}

func (f *fakeRepo) UpsertDriversBatch(ctx context.Context, drivers []*models.Driver) error {
	for _, driver := range drivers {
		if err := f.UpsertDriver(ctx, driver); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepo) GetDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	for _, driver := range f.drivers {
		if driver.DriverID == driverID {
			return driver, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "driver", ID: "?"}
}

func (f *fakeRepo) ListDrivers(ctx context.Context, limit, offset int) ([]*models.Driver, int, error) {
	return pageOf(f.drivers, limit, offset), len(f.drivers), nil
}

func (f *fakeRepo) UpsertSession(ctx context.Context, session *models.Session) error {
	for _, existing := range f.sessions {
		if existing.SessionKey == session.SessionKey {
			return nil
		}
	}
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeRepo) ListSessions(ctx context.Context, filter repository.SessionFilter) ([]*models.Session, error) {
	return pageOf(f.sessions, filter.Limit, filter.Offset), nil
}

func (f *fakeRepo) InsertPositionsBatch(ctx context.Context, positions []*models.PositionRecord) error {
	f.positions = append(f.positions, positions...)
	return nil
}

func (f *fakeRepo) GetPositions(ctx context.Context, filter repository.PositionFilter) ([]*models.PositionRecord, int, error) {
	return pageOf(f.positions, filter.Limit, filter.Offset), len(f.positions), nil
}

func (f *fakeRepo) UpsertStanding(ctx context.Context, standing *models.DriverStanding) error {
	f.standings[standing.DriverID] = standing
	return nil
}

func (f *fakeRepo) ListStandings(ctx context.Context, limit, offset int) ([]*models.DriverStanding, int, error) {
	ranked := make([]models.DriverStanding, 0, len(f.standings))
	for _, standing := range f.standings {
		ranked = append(ranked, *standing)
	}
	ordered := analysis.Rank(ranked)

	result := make([]*models.DriverStanding, 0, len(ordered))
	for i := range ordered {
		result = append(result, &ordered[i])
	}
	return pageOf(result, limit, offset), len(result), nil
}

func (f *fakeRepo) TopDriver(ctx context.Context, filter repository.TopDriverFilter) (*models.DriverStanding, error) {
	standings, _, err := f.ListStandings(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return nil, &repository.NotFoundError{Resource: "top_driver", ID: "empty"}
	}
	return standings[0], nil
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error {
	return f.healthErr
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Shared collector: promauto panics on duplicate metric registration.
var testCollector = metrics.NewCollector("services_test")

func testLogger() *logging.StructuredLogger {
	return logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
}

func intPtr(v int) *int {
	return &v
}

func seededRepo() *fakeRepo {
	repo := newFakeRepo()

	repo.sessions = []*models.Session{
		{SessionKey: 9001, MeetingKey: 100, SessionType: models.SessionTypeRace, Year: 2024},
		{SessionKey: 9002, MeetingKey: 100, SessionType: models.SessionTypeQualifying, Year: 2024},
		{SessionKey: 9003, MeetingKey: 90, SessionType: models.SessionTypeRace, Year: 2023},
	}

	date2023 := time.Date(2023, 7, 2, 14, 0, 0, 0, time.UTC)
	date2024 := time.Date(2024, 5, 26, 14, 0, 0, 0, time.UTC)

	repo.positions = []*models.PositionRecord{
		{Date: date2023, DriverNumber: 1, MeetingKey: 90, Position: intPtr(2), SessionKey: 9003},
		{Date: date2023, DriverNumber: 16, MeetingKey: 90, Position: intPtr(1), SessionKey: 9003},
		{Date: date2024, DriverNumber: 1, MeetingKey: 100, Position: intPtr(1), SessionKey: 9001},
		{Date: date2024, DriverNumber: 16, MeetingKey: 100, Position: intPtr(2), SessionKey: 9001},
		{Date: date2024, DriverNumber: 4, MeetingKey: 100, Position: nil, SessionKey: 9001},
		{Date: date2024, DriverNumber: 1, MeetingKey: 100, Position: intPtr(1), SessionKey: 9002},
		{Date: date2024, DriverNumber: 16, MeetingKey: 100, Position: intPtr(2), SessionKey: 9002},
	}

	return repo
}

func refreshedService(t *testing.T, repo *fakeRepo) *PerformanceService {
	t.Helper()
	svc := NewPerformanceService(repo, 10, testLogger(), testCollector)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return svc
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	svc := refreshedService(t, seededRepo())

	builtAt, rows := svc.SnapshotInfo()
	if builtAt.IsZero() {
		t.Error("expected snapshot build time to be set")
	}
	if rows != 7 {
		t.Errorf("expected 7 snapshot rows, got %d", rows)
	}
}

func TestAggregatesRaceContext(t *testing.T) {
	svc := refreshedService(t, seededRepo())

	results := svc.Aggregates(models.SessionTypeRace, 0, 0)
	if len(results) != 3 {
		t.Fatalf("expected 3 drivers, got %d", len(results))
	}

	byDriver := make(map[string]*DriverPerformance)
	for _, result := range results {
		byDriver[result.Driver] = result
	}

	one := byDriver["1"]
	if one == nil {
		t.Fatal("driver 1 missing from aggregates")
	}
	// One win (2024) and one P2 (2023): 25 + 18 points, two podiums.
	if one.TotalPoints != 43 {
		t.Errorf("expected 43 points for driver 1, got %d", one.TotalPoints)
	}
	if one.Wins != 1 || one.Podiums != 2 {
		t.Errorf("expected 1 win and 2 podiums for driver 1, got %d/%d", one.Wins, one.Podiums)
	}
	if one.EventCount != 2 {
		t.Errorf("expected 2 events for driver 1, got %d", one.EventCount)
	}

	four := byDriver["4"]
	if four == nil {
		t.Fatal("driver 4 missing from aggregates")
	}
	if four.TotalPoints != 0 || four.MeanPosition != nil {
		t.Error("driver with only undefined positions should score 0 with nil mean")
	}
}

func TestAggregatesYearFilter(t *testing.T) {
	svc := refreshedService(t, seededRepo())

	results := svc.Aggregates(models.SessionTypeRace, 2024, 2024)

	byDriver := make(map[string]*DriverPerformance)
	for _, result := range results {
		byDriver[result.Driver] = result
	}

	// 2023 rows excluded: driver 16's win disappears.
	sixteen := byDriver["16"]
	if sixteen == nil {
		t.Fatal("driver 16 missing from aggregates")
	}
	if sixteen.Wins != 0 {
		t.Errorf("expected 0 wins for driver 16 in 2024, got %d", sixteen.Wins)
	}
	if sixteen.TotalPoints != 18 {
		t.Errorf("expected 18 points for driver 16 in 2024, got %d", sixteen.TotalPoints)
	}
}

func TestLeaderCombinesRaceAndQualifying(t *testing.T) {
	svc := refreshedService(t, seededRepo())

	leader, err := svc.Leader(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Drivers 1 and 16 have one win each; driver 1's pole breaks the tie.
	if leader.DriverID != "1" {
		t.Errorf("expected driver 1 as leader, got %s", leader.DriverID)
	}
	if leader.Wins != 1 || leader.Poles != 1 {
		t.Errorf("expected 1 win and 1 pole, got %d/%d", leader.Wins, leader.Poles)
	}
}

func TestLeaderUsesEarliestSamplePerSession(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions = []*models.Session{
		{SessionKey: 9001, MeetingKey: 100, SessionType: models.SessionTypeRace, Year: 2024},
	}

	start := time.Date(2024, 5, 26, 14, 0, 0, 0, time.UTC)
	// Driver 16 leads the first sample, driver 1 leads the last: the
	// earliest sample is the session's representative, so the win belongs
	// to driver 16.
	repo.positions = []*models.PositionRecord{
		{Date: start, DriverNumber: 16, MeetingKey: 100, Position: intPtr(1), SessionKey: 9001},
		{Date: start, DriverNumber: 1, MeetingKey: 100, Position: intPtr(2), SessionKey: 9001},
		{Date: start.Add(90 * time.Minute), DriverNumber: 16, MeetingKey: 100, Position: intPtr(2), SessionKey: 9001},
		{Date: start.Add(90 * time.Minute), DriverNumber: 1, MeetingKey: 100, Position: intPtr(1), SessionKey: 9001},
	}

	svc := refreshedService(t, repo)

	leader, err := svc.Leader(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leader.DriverID != "16" {
		t.Errorf("expected driver 16 as leader, got %s", leader.DriverID)
	}

	results := svc.Aggregates(models.SessionTypeRace, 0, 0)
	byDriver := make(map[string]*DriverPerformance)
	for _, result := range results {
		byDriver[result.Driver] = result
	}
	if byDriver["16"].Wins != 1 {
		t.Errorf("expected the early sample to carry the win, got %d", byDriver["16"].Wins)
	}
	if byDriver["1"].Wins != 0 {
		t.Errorf("expected no win for the late-sample driver, got %d", byDriver["1"].Wins)
	}
}

func TestLeaderCountsSprintWins(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions = []*models.Session{
		{SessionKey: 9001, MeetingKey: 100, SessionType: models.SessionTypeRace, Year: 2024},
		{SessionKey: 9005, MeetingKey: 101, SessionType: models.SessionTypeSprint, Year: 2024},
	}

	date := time.Date(2024, 5, 26, 14, 0, 0, 0, time.UTC)
	repo.positions = []*models.PositionRecord{
		{Date: date, DriverNumber: 1, MeetingKey: 100, Position: intPtr(1), SessionKey: 9001},
		{Date: date, DriverNumber: 16, MeetingKey: 100, Position: intPtr(2), SessionKey: 9001},
		{Date: date.Add(24 * time.Hour), DriverNumber: 16, MeetingKey: 101, Position: intPtr(1), SessionKey: 9005},
		{Date: date.Add(24 * time.Hour), DriverNumber: 16, MeetingKey: 101, Position: intPtr(1), SessionKey: 9005},
	}

	svc := refreshedService(t, repo)

	leader, err := svc.Leader(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One win apiece with sprint counted race-like; duplicate sprint
	// samples collapse to a single win, and driver 16's extra podium
	// breaks the tie.
	if leader.DriverID != "16" {
		t.Errorf("expected driver 16 as leader, got %s", leader.DriverID)
	}
	if leader.Wins != 1 || leader.Podiums != 2 {
		t.Errorf("expected 1 win and 2 podiums for the leader, got %d/%d", leader.Wins, leader.Podiums)
	}
	byID := make(map[string]int)
	race := svc.Aggregates(models.SessionTypeRace, 0, 0)
	for _, agg := range race {
		byID[agg.Driver] = agg.Wins
	}
	sprint := svc.Aggregates(models.SessionTypeSprint, 0, 0)
	for _, agg := range sprint {
		byID[agg.Driver] += agg.Wins
	}
	if byID["1"] != 1 || byID["16"] != 1 {
		t.Errorf("expected one win each across race and sprint, got 1=%d 16=%d", byID["1"], byID["16"])
	}
}

func TestLeaderEmptySnapshot(t *testing.T) {
	svc := NewPerformanceService(newFakeRepo(), 10, testLogger(), testCollector)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	_, err := svc.Leader(0, 0)
	if !errors.Is(err, analysis.ErrNoDriverFound) {
		t.Errorf("expected ErrNoDriverFound, got %v", err)
	}
}

func TestDriverTrendSortsByDate(t *testing.T) {
	svc := refreshedService(t, seededRepo())

	trend := svc.DriverTrend(16)
	if len(trend) != 2 {
		t.Fatalf("expected 2 trend points, got %d", len(trend))
	}

	// 2023 win first, 2024 P2 second; shrinking-window rolling mean.
	if trend[0].Position != 1 || trend[1].Position != 2 {
		t.Errorf("expected positions [1, 2], got [%d, %d]", trend[0].Position, trend[1].Position)
	}
	if trend[0].RollingMean != 1.0 {
		t.Errorf("expected rolling mean 1.0, got %f", trend[0].RollingMean)
	}
	if trend[1].RollingMean != 1.5 {
		t.Errorf("expected rolling mean 1.5, got %f", trend[1].RollingMean)
	}
}

func TestRefreshFromRecords(t *testing.T) {
	svc := NewPerformanceService(newFakeRepo(), 10, testLogger(), testCollector)

	svc.RefreshFromRecords([]analysis.Record{
		{Driver: "44", Event: "1", Session: models.SessionTypeRace, Position: intPtr(1)},
	})

	_, rows := svc.SnapshotInfo()
	if rows != 1 {
		t.Errorf("expected 1 snapshot row, got %d", rows)
	}

	results := svc.Aggregates(models.SessionTypeRace, 0, 0)
	if len(results) != 1 || results[0].Wins != 1 {
		t.Error("expected the installed record to produce one win")
	}
}
