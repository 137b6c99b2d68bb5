package models

import (
	"time"
)

// Session type names as delivered by the OpenF1 sessions feed.
const (
	SessionTypeRace       = "Race"
	SessionTypeQualifying = "Qualifying"
	SessionTypeSprint     = "Sprint"
	SessionTypePractice   = "Practice"
)

// Driver represents one entry in the driver dimension table.
// DriverID is the stable join key across all tables; inserts use
// insert-or-ignore semantics so the first written name is preserved.
type Driver struct {
	DriverID    int        `json:"driver_id" db:"driver_id"`
	Name        string     `json:"name" db:"name"`
	Nationality string     `json:"nationality" db:"nationality"`
	Birthdate   *time.Time `json:"birthdate,omitempty" db:"birthdate"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Session represents a timed on-track activity within a race weekend.
type Session struct {
	SessionKey       int       `json:"session_key" db:"session_key"`
	MeetingKey       int       `json:"meeting_key" db:"meeting_key"`
	CircuitShortName string    `json:"circuit_short_name" db:"circuit_short_name"`
	SessionType      string    `json:"session_type" db:"session_type"`
	Year             int       `json:"year" db:"year"`
	DateStart        time.Time `json:"date_start" db:"date_start"`
}

// PositionRecord is a single timing sample for a driver in a session.
// Position is nullable: unclassified samples keep a NULL position and are
// excluded from numeric aggregates but still counted. The positions table
// declares no natural unique key, so duplicate rows are possible and must
// be tolerated by downstream deduplication.
type PositionRecord struct {
	ID           int64     `json:"id" db:"id"`
	Date         time.Time `json:"date" db:"date"`
	DriverNumber int       `json:"driver_number" db:"driver_number"`
	MeetingKey   int       `json:"meeting_key" db:"meeting_key"`
	Position     *int      `json:"position,omitempty" db:"position"`
	SessionKey   int       `json:"session_key" db:"session_key"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DriverStanding holds career counters for one driver across seasons.
// Keyed by the results API driver reference rather than the car number,
// since car numbers are reused across eras.
type DriverStanding struct {
	DriverID string `json:"driver_id" db:"driver_id"`
	Name     string `json:"name" db:"name"`
	Wins     int    `json:"wins" db:"wins"`
	Podiums  int    `json:"podiums" db:"podiums"`
	Poles    int    `json:"pole_positions" db:"pole_positions"`
	Points   int    `json:"points" db:"points"`
}

// ValidationError represents a data validation error.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
