package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"f1-platform/internal/models"
)

// DriverAggregate is the derived per-driver statistic set for one analysis
// run. Pointer statistics are nil when no contributing row defined the
// underlying field; TotalPoints is genuinely zero when nothing scored.
// Aggregates are transient: recomputed fully from the snapshot they were
// computed against, never incrementally updated.
type DriverAggregate struct {
	Driver      string
	RecordCount int
	EventCount  int

	TotalPoints int

	MeanPosition *float64
	MinPosition  *int
	MaxPosition  *int

	Wins    int
	Podiums int
	Poles   int

	MeanLapTime *time.Duration
}

// Aggregate groups deduplicated, scored records by driver. The session
// context of the rows decides which counters apply: wins and podiums are
// race statistics, poles are a qualifying statistic. Order-independent:
// permuting the input does not change any output.
func Aggregate(records []Record, sessionContext string) map[string]*DriverAggregate {
	aggregates := make(map[string]*DriverAggregate)

	positions := make(map[string][]float64)
	lapTimes := make(map[string][]time.Duration)
	events := make(map[string]map[string]struct{})

	for _, rec := range records {
		agg, ok := aggregates[rec.Driver]
		if !ok {
			agg = &DriverAggregate{Driver: rec.Driver}
			aggregates[rec.Driver] = agg
			events[rec.Driver] = make(map[string]struct{})
		}

		agg.RecordCount++
		agg.TotalPoints += ScoreRecord(rec)
		events[rec.Driver][rec.Event] = struct{}{}

		if rec.LapTime != nil {
			lapTimes[rec.Driver] = append(lapTimes[rec.Driver], *rec.LapTime)
		}

		if rec.Position == nil {
			continue
		}
		pos := *rec.Position
		positions[rec.Driver] = append(positions[rec.Driver], float64(pos))

		if agg.MinPosition == nil || pos < *agg.MinPosition {
			p := pos
			agg.MinPosition = &p
		}
		if agg.MaxPosition == nil || pos > *agg.MaxPosition {
			p := pos
			agg.MaxPosition = &p
		}

		switch sessionContext {
		case models.SessionTypeRace, models.SessionTypeSprint:
			if pos == 1 {
				agg.Wins++
			}
			if pos <= 3 {
				agg.Podiums++
			}
		case models.SessionTypeQualifying:
			if pos == 1 {
				agg.Poles++
			}
		}
	}

	for driver, agg := range aggregates {
		agg.EventCount = len(events[driver])

		if defined := positions[driver]; len(defined) > 0 {
			mean := stat.Mean(defined, nil)
			agg.MeanPosition = &mean
		}

		if defined := lapTimes[driver]; len(defined) > 0 {
			var sum time.Duration
			for _, d := range defined {
				sum += d
			}
			mean := sum / time.Duration(len(defined))
			agg.MeanLapTime = &mean
		}
	}

	return aggregates
}

// TrendPoint is one step of a driver's position-over-time series.
type TrendPoint struct {
	Date        time.Time `json:"date"`
	Position    int       `json:"position"`
	RollingMean float64   `json:"rolling_mean"`
}

// defaultTrendWindow is the rolling window used for trend visualization.
const defaultTrendWindow = 10

// Trend computes a rolling mean of position over time for a single
// driver's records. The window shrinks at the start of the series: the
// rolling mean over the first k < window events uses only those k values.
// Records without a position are skipped; the remainder is sorted by
// timestamp, the sole order-sensitive step of the pipeline.
func Trend(records []Record, window int) []TrendPoint {
	if window <= 0 {
		window = defaultTrendWindow
	}

	defined := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Position != nil {
			defined = append(defined, rec)
		}
	}

	sort.SliceStable(defined, func(i, j int) bool {
		return defined[i].Date.Before(defined[j].Date)
	})

	points := make([]TrendPoint, 0, len(defined))
	values := make([]float64, 0, len(defined))

	for _, rec := range defined {
		values = append(values, float64(*rec.Position))

		start := len(values) - window
		if start < 0 {
			start = 0
		}

		points = append(points, TrendPoint{
			Date:        rec.Date,
			Position:    *rec.Position,
			RollingMean: stat.Mean(values[start:], nil),
		})
	}

	return points
}
