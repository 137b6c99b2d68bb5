package clients

import (
	"context"
	"fmt"
	"time"

	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// ErgastRace is one race weekend in a season, carrying either race results
// or qualifying results depending on the endpoint queried.
type ErgastRace struct {
	RaceName          string         `json:"raceName"`
	Round             string         `json:"round"`
	Results           []ErgastResult `json:"Results"`
	QualifyingResults []ErgastResult `json:"QualifyingResults"`
}

// ErgastResult is one classified entry in a race or qualifying session.
type ErgastResult struct {
	PositionText string            `json:"positionText"`
	Position     string            `json:"position"`
	Driver       ErgastDriver      `json:"Driver"`
	FastestLap   *ErgastFastestLap `json:"FastestLap,omitempty"`
}

// ErgastDriver identifies a driver in the results feed.
type ErgastDriver struct {
	DriverID   string `json:"driverId"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

// ErgastFastestLap carries the fastest-lap ranking for a result; rank "1"
// marks the session's fastest lap.
type ErgastFastestLap struct {
	Rank string `json:"rank"`
	Time struct {
		Time string `json:"time"`
	} `json:"Time"`
}

// FullName renders "Given Family" for presentation.
func (d ErgastDriver) FullName() string {
	return d.GivenName + " " + d.FamilyName
}

// ergastEnvelope unwraps the MRData nesting around every response.
type ergastEnvelope struct {
	MRData struct {
		RaceTable struct {
			Races []ErgastRace `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

// ErgastClient fetches season results and qualifying classifications.
type ErgastClient struct {
	baseURL string
	fetch   *fetcher
}

// NewErgastClient creates a client for the given base URL, e.g.
// "https://ergast.com/api/f1".
func NewErgastClient(baseURL string, timeout time.Duration, retryMax int, logger *logging.StructuredLogger, collector *metrics.Collector) *ErgastClient {
	return &ErgastClient{
		baseURL: baseURL,
		fetch:   newFetcher("ergast", timeout, retryMax, logger, collector),
	}
}

// SeasonResults fetches all race results for one season.
func (c *ErgastClient) SeasonResults(ctx context.Context, season int) ([]ErgastRace, error) {
	var envelope ergastEnvelope
	url := fmt.Sprintf("%s/%d/results.json?limit=1000", c.baseURL, season)
	if err := c.fetch.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.MRData.RaceTable.Races, nil
}

// SeasonQualifying fetches all qualifying classifications for one season.
func (c *ErgastClient) SeasonQualifying(ctx context.Context, season int) ([]ErgastRace, error) {
	var envelope ergastEnvelope
	url := fmt.Sprintf("%s/%d/qualifying.json?limit=1000", c.baseURL, season)
	if err := c.fetch.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.MRData.RaceTable.Races, nil
}
