package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"f1-platform/internal/analysis"
	"f1-platform/internal/models"
	"f1-platform/internal/repository"
	"f1-platform/internal/services"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// stubRepo is a minimal F1Repository for handler tests.
type stubRepo struct {
	drivers   []*models.Driver
	positions []*models.PositionRecord
	standings []*models.DriverStanding
	healthErr error

	// Totals beyond the stubbed page; zero means "page is everything".
	driversTotal   int
	standingsTotal int
}

func (s *stubRepo) UpsertDriver(ctx context.Context, driver *models.Driver) error       { return nil }
func (s *stubRepo) UpsertDriversBatch(ctx context.Context, drivers []*models.Driver) error {
	return nil
}
func (s *stubRepo) GetDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	return nil, &repository.NotFoundError{Resource: "driver", ID: "?"}
}
func (s *stubRepo) ListDrivers(ctx context.Context, limit, offset int) ([]*models.Driver, int, error) {
	total := s.driversTotal
	if total == 0 {
		total = len(s.drivers)
	}
	return s.drivers, total, nil
}
func (s *stubRepo) UpsertSession(ctx context.Context, session *models.Session) error { return nil }
func (s *stubRepo) ListSessions(ctx context.Context, filter repository.SessionFilter) ([]*models.Session, error) {
	return nil, nil
}
func (s *stubRepo) InsertPositionsBatch(ctx context.Context, positions []*models.PositionRecord) error {
	return nil
}
func (s *stubRepo) GetPositions(ctx context.Context, filter repository.PositionFilter) ([]*models.PositionRecord, int, error) {
	return s.positions, len(s.positions), nil
}
func (s *stubRepo) UpsertStanding(ctx context.Context, standing *models.DriverStanding) error {
	return nil
}
func (s *stubRepo) ListStandings(ctx context.Context, limit, offset int) ([]*models.DriverStanding, int, error) {
	total := s.standingsTotal
	if total == 0 {
		total = len(s.standings)
	}
	return s.standings, total, nil
}
func (s *stubRepo) TopDriver(ctx context.Context, filter repository.TopDriverFilter) (*models.DriverStanding, error) {
	if len(s.standings) == 0 {
		return nil, &repository.NotFoundError{Resource: "top_driver", ID: "empty"}
	}
	return s.standings[0], nil
}
func (s *stubRepo) HealthCheck(ctx context.Context) error { return s.healthErr }

// Shared collector: promauto panics on duplicate metric registration.
var testCollector = metrics.NewCollector("handlers_test")

func testRouter(t *testing.T, repo *stubRepo, records []analysis.Record) *mux.Router {
	t.Helper()

	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	performance := services.NewPerformanceService(repo, 10, logger, testCollector)
	performance.RefreshFromRecords(records)

	handler := NewF1Handler(repo, performance, logger, testCollector)
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	handler.RegisterRoutes(router)
	return router
}

func intPtr(v int) *int {
	return &v
}

func durPtr(d time.Duration) *time.Duration {
	return &d
}

func doRequest(router *mux.Router, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetPerformanceFormatsLapTimes(t *testing.T) {
	records := []analysis.Record{
		{
			Driver:   "1",
			Event:    "100",
			Session:  models.SessionTypeRace,
			Date:     time.Date(2024, 5, 26, 14, 0, 0, 0, time.UTC),
			Position: intPtr(1),
			LapTime:  durPtr(83*time.Second + 456*time.Millisecond),
		},
	}

	rec := doRequest(testRouter(t, &stubRepo{}, records), http.MethodGet, "/api/performance")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Data []struct {
			Driver      string `json:"driver"`
			TotalPoints int    `json:"total_points"`
			Wins        int    `json:"wins"`
			MeanLapTime string `json:"mean_lap_time"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Data) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(response.Data))
	}
	entry := response.Data[0]
	if entry.Driver != "1" || entry.Wins != 1 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.MeanLapTime != "1:23.456" {
		t.Errorf("expected lap time \"1:23.456\", got %q", entry.MeanLapTime)
	}
}

func TestGetPerformanceRejectsBadYear(t *testing.T) {
	rec := doRequest(testRouter(t, &stubRepo{}, nil), http.MethodGet, "/api/performance?year_from=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetLeaderReturns404WhenEmpty(t *testing.T) {
	rec := doRequest(testRouter(t, &stubRepo{}, nil), http.MethodGet, "/api/performance/leader")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if response.Code != http.StatusNotFound {
		t.Errorf("expected error code 404 in envelope, got %d", response.Code)
	}
}

func TestGetLeaderReturnsStanding(t *testing.T) {
	records := []analysis.Record{
		{Driver: "1", Event: "100", Session: models.SessionTypeRace, Position: intPtr(1)},
		{Driver: "16", Event: "100", Session: models.SessionTypeRace, Position: intPtr(2)},
	}

	rec := doRequest(testRouter(t, &stubRepo{}, records), http.MethodGet, "/api/performance/leader")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var leader models.DriverStanding
	if err := json.Unmarshal(rec.Body.Bytes(), &leader); err != nil {
		t.Fatalf("failed to decode leader: %v", err)
	}
	if leader.DriverID != "1" || leader.Wins != 1 {
		t.Errorf("unexpected leader %+v", leader)
	}
}

func TestGetDriverTrendRejectsBadNumber(t *testing.T) {
	rec := doRequest(testRouter(t, &stubRepo{}, nil), http.MethodGet, "/api/drivers/abc/trend")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetDriversPaginationEnvelope(t *testing.T) {
	repo := &stubRepo{
		drivers: []*models.Driver{
			{DriverID: 1, Name: "Max Verstappen"},
			{DriverID: 16, Name: "Charles Leclerc"},
		},
		driversTotal: 250,
	}

	rec := doRequest(testRouter(t, repo, nil), http.MethodGet, "/api/drivers?limit=100")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Total != 250 {
		t.Errorf("expected total 250, got %d", response.Total)
	}
	if response.TotalPages != 3 {
		t.Errorf("expected 3 pages for 250 rows at limit 100, got %d", response.TotalPages)
	}
}

func TestGetTopDriverNotFound(t *testing.T) {
	rec := doRequest(testRouter(t, &stubRepo{}, nil), http.MethodGet, "/api/standings/top")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetTopDriverReturnsStanding(t *testing.T) {
	repo := &stubRepo{
		standings: []*models.DriverStanding{
			{DriverID: "hamilton", Name: "Lewis Hamilton", Wins: 103, Podiums: 197, Poles: 104},
		},
	}

	rec := doRequest(testRouter(t, repo, nil), http.MethodGet, "/api/standings/top")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var standing models.DriverStanding
	if err := json.Unmarshal(rec.Body.Bytes(), &standing); err != nil {
		t.Fatalf("failed to decode standing: %v", err)
	}
	if standing.DriverID != "hamilton" || standing.Wins != 103 {
		t.Errorf("unexpected standing %+v", standing)
	}
}

func TestHealthCheckUnhealthy(t *testing.T) {
	repo := &stubRepo{healthErr: context.DeadlineExceeded}

	rec := doRequest(testRouter(t, repo, nil), http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRequestIDEchoedOnResponse(t *testing.T) {
	router := testRouter(t, &stubRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Errorf("expected request ID echoed, got %q", got)
	}
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	rec := doRequest(testRouter(t, &stubRepo{}, nil), http.MethodGet, "/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request ID header")
	}
}
