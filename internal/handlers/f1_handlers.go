package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"f1-platform/internal/analysis"
	"f1-platform/internal/models"
	"f1-platform/internal/repository"
	"f1-platform/internal/services"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// F1Handler handles the telemetry and performance API endpoints.
type F1Handler struct {
	repo        repository.F1Repository
	performance *services.PerformanceService
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewF1Handler creates a new API handler.
func NewF1Handler(
	repo repository.F1Repository,
	performance *services.PerformanceService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *F1Handler {
	return &F1Handler{
		repo:        repo,
		performance: performance,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// performanceEntry is the presentation form of a driver aggregate. Nil
// statistics stay absent from the JSON rather than reading as zeroes; the
// mean lap time is rendered "m:ss.mmm" at this boundary only.
type performanceEntry struct {
	Driver       string   `json:"driver"`
	RecordCount  int      `json:"record_count"`
	EventCount   int      `json:"event_count"`
	TotalPoints  int      `json:"total_points"`
	MeanPosition *float64 `json:"mean_position,omitempty"`
	MinPosition  *int     `json:"min_position,omitempty"`
	MaxPosition  *int     `json:"max_position,omitempty"`
	Wins         int      `json:"wins"`
	Podiums      int      `json:"podiums"`
	Poles        int      `json:"poles"`
	MeanLapTime  string   `json:"mean_lap_time,omitempty"`
}

// GetDrivers handles GET /api/drivers
func (h *F1Handler) GetDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/drivers").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)
	offset := (page - 1) * limit

	drivers, total, err := h.repo.ListDrivers(ctx, limit, offset)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_DRIVERS_ERROR] Failed to list drivers", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/drivers")
		h.sendError(w, r, "failed to retrieve drivers", http.StatusInternalServerError)
		return
	}

	response := PaginatedResponse{
		Data:       drivers,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest("/api/drivers", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetPositions handles GET /api/positions
func (h *F1Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/positions").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)
	offset := (page - 1) * limit

	filter := repository.PositionFilter{
		Limit:  limit,
		Offset: offset,
	}

	if raw := r.URL.Query().Get("driver_number"); raw != "" {
		driverNumber, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, r, "invalid driver_number, expected integer", http.StatusBadRequest)
			return
		}
		filter.DriverNumber = &driverNumber
	}

	if raw := r.URL.Query().Get("session_key"); raw != "" {
		sessionKey, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, r, "invalid session_key, expected integer", http.StatusBadRequest)
			return
		}
		filter.SessionKey = &sessionKey
	}

	if raw := r.URL.Query().Get("meeting_key"); raw != "" {
		meetingKey, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, r, "invalid meeting_key, expected integer", http.StatusBadRequest)
			return
		}
		filter.MeetingKey = &meetingKey
	}

	if raw := r.URL.Query().Get("session_type"); raw != "" {
		sessionType := raw
		filter.SessionType = &sessionType
	}

	positions, total, err := h.repo.GetPositions(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_POSITIONS_ERROR] Failed to get positions", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/positions")
		h.sendError(w, r, "failed to retrieve positions", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       positions,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/positions", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetPerformance handles GET /api/performance
func (h *F1Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/performance").Observe(duration.Seconds())
	}()

	sessionType := r.URL.Query().Get("session_type")
	if sessionType == "" {
		sessionType = models.SessionTypeRace
	}

	yearFrom, ok := parseOptionalYear(r, "year_from")
	if !ok {
		h.sendError(w, r, "invalid year_from, expected integer", http.StatusBadRequest)
		return
	}
	yearTo, ok := parseOptionalYear(r, "year_to")
	if !ok {
		h.sendError(w, r, "invalid year_to, expected integer", http.StatusBadRequest)
		return
	}

	aggregates := h.performance.Aggregates(sessionType, yearFrom, yearTo)

	entries := make([]performanceEntry, 0, len(aggregates))
	for _, agg := range aggregates {
		entry := performanceEntry{
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
		}
		if agg.MeanLapTime != nil {
			entry.MeanLapTime = models.FormatLapTime(*agg.MeanLapTime)
		}
		entries = append(entries, entry)
	}

	response := PaginatedResponse{
		Data:  entries,
		Total: len(entries),
		Page:  1,
		Limit: len(entries),
	}

	h.metrics.RecordAPIRequest("/api/performance", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetLeader handles GET /api/performance/leader
func (h *F1Handler) GetLeader(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/performance/leader").Observe(duration.Seconds())
	}()

	yearFrom, ok := parseOptionalYear(r, "year_from")
	if !ok {
		h.sendError(w, r, "invalid year_from, expected integer", http.StatusBadRequest)
		return
	}
	yearTo, ok := parseOptionalYear(r, "year_to")
	if !ok {
		h.sendError(w, r, "invalid year_to, expected integer", http.StatusBadRequest)
		return
	}

	leader, err := h.performance.Leader(yearFrom, yearTo)
	if errors.Is(err, analysis.ErrNoDriverFound) {
		h.sendError(w, r, "no driver found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error(ctx, "[API_GET_LEADER_ERROR] Failed to compute leader", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/performance/leader")
		h.sendError(w, r, "failed to compute leader", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/performance/leader", "GET", "200")
	h.sendJSON(w, leader, http.StatusOK)
}

// RefreshPerformance handles POST /api/performance/refresh
func (h *F1Handler) RefreshPerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/performance/refresh").Observe(duration.Seconds())
	}()

	if err := h.performance.Refresh(ctx); err != nil {
		h.logger.Error(ctx, "[API_REFRESH_ERROR] Snapshot refresh failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/performance/refresh")
		h.sendError(w, r, "failed to refresh snapshot", http.StatusInternalServerError)
		return
	}

	builtAt, rows := h.performance.SnapshotInfo()

	h.metrics.RecordAPIRequest("/api/performance/refresh", "POST", "200")
	h.sendJSON(w, map[string]interface{}{
		"status":   "refreshed",
		"built_at": builtAt.Format(time.RFC3339),
		"rows":     rows,
	}, http.StatusOK)
}

// GetDriverTrend handles GET /api/drivers/{driver_number}/trend
func (h *F1Handler) GetDriverTrend(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/drivers/trend").Observe(duration.Seconds())
	}()

	raw := mux.Vars(r)["driver_number"]
	driverNumber, err := strconv.Atoi(raw)
	if err != nil {
		h.sendError(w, r, "invalid driver_number, expected integer", http.StatusBadRequest)
		return
	}

	trend := h.performance.DriverTrend(driverNumber)

	h.metrics.RecordAPIRequest("/api/drivers/trend", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"driver_number": driverNumber,
		"points":        trend,
	}, http.StatusOK)
}

// GetStandings handles GET /api/standings
func (h *F1Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/standings").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)
	offset := (page - 1) * limit

	standings, total, err := h.repo.ListStandings(ctx, limit, offset)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_STANDINGS_ERROR] Failed to list standings", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/standings")
		h.sendError(w, r, "failed to retrieve standings", http.StatusInternalServerError)
		return
	}

	response := PaginatedResponse{
		Data:       standings,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest("/api/standings", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetTopDriver handles GET /api/standings/top
func (h *F1Handler) GetTopDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/standings/top").Observe(duration.Seconds())
	}()

	yearFrom, ok := parseOptionalYear(r, "year_from")
	if !ok {
		h.sendError(w, r, "invalid year_from, expected integer", http.StatusBadRequest)
		return
	}
	yearTo, ok := parseOptionalYear(r, "year_to")
	if !ok {
		h.sendError(w, r, "invalid year_to, expected integer", http.StatusBadRequest)
		return
	}
	if yearFrom == 0 {
		yearFrom = 1950
	}
	if yearTo == 0 {
		yearTo = time.Now().UTC().Year()
	}

	standing, err := h.repo.TopDriver(ctx, repository.TopDriverFilter{
		YearFrom: yearFrom,
		YearTo:   yearTo,
	})

	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		h.sendError(w, r, "no driver found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error(ctx, "[API_TOP_DRIVER_ERROR] Failed to query top driver", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/standings/top")
		h.sendError(w, r, "failed to query top driver", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/standings/top", "GET", "200")
	h.sendJSON(w, standing, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *F1Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.repo.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Database unreachable", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	builtAt, rows := h.performance.SnapshotInfo()

	status := map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"snapshot_rows": rows,
	}
	if !builtAt.IsZero() {
		status["snapshot_built_at"] = builtAt.Format(time.RFC3339)
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// parsePagination extracts page/limit query parameters with defaults.
func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 100

	if raw := r.URL.Query().Get("page"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			page = p
		}
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	return page, limit
}

// parseOptionalYear parses an optional year query parameter; absent is 0.
func parseOptionalYear(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return year, true
}

// sendJSON sends a JSON response.
func (h *F1Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response.
func (h *F1Handler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all API routes.
func (h *F1Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drivers", h.GetDrivers).Methods("GET")
	router.HandleFunc("/api/drivers/{driver_number}/trend", h.GetDriverTrend).Methods("GET")
	router.HandleFunc("/api/positions", h.GetPositions).Methods("GET")
	router.HandleFunc("/api/performance", h.GetPerformance).Methods("GET")
	router.HandleFunc("/api/performance/leader", h.GetLeader).Methods("GET")
	router.HandleFunc("/api/performance/refresh", h.RefreshPerformance).Methods("POST")
	router.HandleFunc("/api/standings", h.GetStandings).Methods("GET")
	router.HandleFunc("/api/standings/top", h.GetTopDriver).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
