// Package analysis implements the driver-performance aggregation pipeline:
// raw per-session timing rows are normalized, deduplicated, scored and
// grouped into per-driver statistics consumed by the API and report layers.
//
// Every stage consumes an immutable input slice and produces a new output;
// nothing here blocks on I/O. Callers deliver a complete snapshot of rows
// before aggregation begins.
package analysis

import (
	"strconv"
	"strings"
	"time"

	"f1-platform/internal/models"
)

// RawRow is one heterogeneous feed row before cleaning. Numeric fields
// arrive as strings and may be malformed; malformed fields degrade to
// unknown on the normalized record instead of failing the batch.
type RawRow struct {
	Driver     string
	Event      string
	Session    string
	Date       string
	Position   string
	LapTime    string
	Sprint     bool
	FastestLap bool
}

// Record is the canonical event record: one observation of a driver in a
// session. Position and LapTime are nil when the raw field could not be
// parsed; such rows still participate in counts but are excluded from the
// numeric aggregates that need the missing field.
type Record struct {
	Driver     string
	Event      string
	Session    string
	Date       time.Time
	Position   *int
	LapTime    *time.Duration
	Sprint     bool
	FastestLap bool
}

// Normalize cleans a sequence of raw rows into canonical records.
// Row-level failure isolation: a malformed position or lap time marks that
// field unknown for the row, it never aborts the batch or drops the row.
func Normalize(rows []RawRow) []Record {
	records := make([]Record, 0, len(rows))

	for _, row := range rows {
		rec := Record{
			Driver:     strings.TrimSpace(row.Driver),
			Event:      strings.TrimSpace(row.Event),
			Session:    strings.TrimSpace(row.Session),
			Position:   parsePosition(row.Position),
			FastestLap: row.FastestLap,
		}

		// A sprint session implies the sprint flag regardless of the feed.
		rec.Sprint = row.Sprint || rec.Session == models.SessionTypeSprint

		if d, err := models.ParseLapTime(row.LapTime); err == nil {
			lap := d
			rec.LapTime = &lap
		}

		if ts, err := parseTimestamp(row.Date); err == nil {
			rec.Date = ts
		}

		records = append(records, rec)
	}

	return records
}

// parsePosition coerces the raw position field to a positive integer.
// Anything else is an unknown position.
func parsePosition(raw string) *int {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}

	pos, err := strconv.Atoi(cleaned)
	if err != nil || pos < 1 {
		return nil
	}

	return &pos
}

// parseTimestamp accepts the ISO-8601 variants seen in the position feed.
func parseTimestamp(raw string) (time.Time, error) {
	cleaned := strings.TrimSpace(raw)

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, &models.ValidationError{
		Field:   "date",
		Value:   raw,
		Message: "unrecognized timestamp format",
	}
}
