package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadRawRows reads position rows from a CSV export of the positions
// table. The header row names the columns; unknown columns are ignored and
// missing ones leave the field empty, which the normalizer tolerates.
func ReadRawRows(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := index[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var rows []RawRow
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}

		session := field(row, "session_type", "session")
		rows = append(rows, RawRow{
			Driver:     field(row, "driver_number", "driver"),
			Event:      field(row, "meeting_key", "event"),
			Session:    session,
			Date:       field(row, "date"),
			Position:   field(row, "position"),
			LapTime:    field(row, "lap_time", "laptime"),
			Sprint:     strings.EqualFold(session, "sprint"),
			FastestLap: strings.EqualFold(field(row, "fastest_lap"), "true"),
		})
	}

	return rows, nil
}
