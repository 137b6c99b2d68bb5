package analysis

// groupKey identifies one (driver, event) pair.
type groupKey struct {
	driver string
	event  string
}

// Dedupe selects exactly one representative record per (driver, event)
// pair. A single race weekend emits multiple timing samples per driver, so
// only the best stands for ranking purposes.
//
// Selection order: ascending by lap time, unknown lap times sort last.
// Exact ties keep the first-encountered record, so the selection is stable
// and idempotent. Group order follows first encounter in the input.
func Dedupe(records []Record) []Record {
	best := make(map[groupKey]Record, len(records))
	order := make([]groupKey, 0, len(records))

	for _, rec := range records {
		key := groupKey{driver: rec.Driver, event: rec.Event}

		current, seen := best[key]
		if !seen {
			best[key] = rec
			order = append(order, key)
			continue
		}

		if betterLapTime(rec, current) {
			best[key] = rec
		}
	}

	out := make([]Record, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}

	return out
}

// betterLapTime reports whether candidate strictly beats current. Equal
// times are not "better", which keeps the first-encountered record.
func betterLapTime(candidate, current Record) bool {
	if candidate.LapTime == nil {
		return false
	}
	if current.LapTime == nil {
		return true
	}
	return *candidate.LapTime < *current.LapTime
}
