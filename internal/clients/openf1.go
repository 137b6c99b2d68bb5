package clients

import (
	"context"
	"fmt"
	"time"

	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// OpenF1Driver is one entry from the drivers feed.
type OpenF1Driver struct {
	DriverNumber int    `json:"driver_number"`
	FullName     string `json:"full_name"`
	CountryCode  string `json:"country_code"`
	Dob          string `json:"dob"`
}

// OpenF1Session is one entry from the sessions feed.
type OpenF1Session struct {
	SessionKey       int       `json:"session_key"`
	MeetingKey       int       `json:"meeting_key"`
	CircuitShortName string    `json:"circuit_short_name"`
	SessionType      string    `json:"session_type"`
	SessionName      string    `json:"session_name"`
	Year             int       `json:"year"`
	DateStart        time.Time `json:"date_start"`
}

// OpenF1Position is one timing sample from the position feed. Position is
// a pointer because unclassified samples arrive as null.
type OpenF1Position struct {
	Date         time.Time `json:"date"`
	DriverNumber int       `json:"driver_number"`
	MeetingKey   int       `json:"meeting_key"`
	Position     *int      `json:"position"`
	SessionKey   int       `json:"session_key"`
}

// OpenF1Client fetches the telemetry feeds (drivers, sessions, positions).
type OpenF1Client struct {
	baseURL string
	fetch   *fetcher
}

// NewOpenF1Client creates a client for the given base URL, e.g.
// "https://api.openf1.org/v1".
func NewOpenF1Client(baseURL string, timeout time.Duration, retryMax int, logger *logging.StructuredLogger, collector *metrics.Collector) *OpenF1Client {
	return &OpenF1Client{
		baseURL: baseURL,
		fetch:   newFetcher("openf1", timeout, retryMax, logger, collector),
	}
}

// Drivers fetches the full driver dimension.
func (c *OpenF1Client) Drivers(ctx context.Context) ([]OpenF1Driver, error) {
	var drivers []OpenF1Driver
	if err := c.fetch.getJSON(ctx, c.baseURL+"/drivers", &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// Sessions fetches all sessions for a year.
func (c *OpenF1Client) Sessions(ctx context.Context, year int) ([]OpenF1Session, error) {
	var sessions []OpenF1Session
	url := fmt.Sprintf("%s/sessions?year=%d", c.baseURL, year)
	if err := c.fetch.getJSON(ctx, url, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Positions fetches every position sample for a session.
func (c *OpenF1Client) Positions(ctx context.Context, sessionKey int) ([]OpenF1Position, error) {
	var positions []OpenF1Position
	url := fmt.Sprintf("%s/position?session_key=%d", c.baseURL, sessionKey)
	if err := c.fetch.getJSON(ctx, url, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}
