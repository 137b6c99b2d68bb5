package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseLapTime parses a lap or qualifying time in "minutes:seconds.millis"
// layout (e.g. "1:23.456") into a duration. Characters other than digits,
// ':' and '.' are stripped first, since upstream feeds occasionally decorate
// times with annotations. Returns a ValidationError when the remainder does
// not fit the layout or encodes a negative duration.
func ParseLapTime(raw string) (time.Duration, error) {
	cleaned := stripNonTimeChars(raw)
	if cleaned == "" {
		return 0, &ValidationError{
			Field:   "lap_time",
			Value:   raw,
			Message: "empty lap time",
		}
	}

	parts := strings.Split(cleaned, ":")
	if len(parts) != 2 {
		return 0, &ValidationError{
			Field:   "lap_time",
			Value:   raw,
			Message: "invalid lap time format, expected M:SS.mmm",
		}
	}

	minutes, err := strconv.Atoi(parts[0])
	if err != nil || minutes < 0 {
		return 0, &ValidationError{
			Field:   "lap_time",
			Value:   raw,
			Message: "invalid minutes component",
		}
	}

	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, &ValidationError{
			Field:   "lap_time",
			Value:   raw,
			Message: "invalid seconds component",
		}
	}

	d := time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second))
	return d, nil
}

// FormatLapTime renders a duration back into the "M:SS.mmm" layout used by
// the presentation layer, e.g. 83.456s -> "1:23.456".
func FormatLapTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	// Round to whole milliseconds before splitting so a seconds component
	// near the minute boundary rolls over into minutes instead of printing
	// as "60.000".
	totalMillis := int64(d.Round(time.Millisecond) / time.Millisecond)
	minutes := totalMillis / 60000
	seconds := float64(totalMillis%60000) / 1000
	return fmt.Sprintf("%d:%06.3f", minutes, seconds)
}

// stripNonTimeChars drops everything except digits and the ':' and '.'
// separators.
func stripNonTimeChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ':' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
