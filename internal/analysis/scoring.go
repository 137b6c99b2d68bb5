package analysis

// Championship points awarded by finishing position. Positions outside the
// table, and unknown positions, score zero.
var basePoints = map[int]int{
	1: 25, 2: 18, 3: 15, 4: 12, 5: 10,
	6: 8, 7: 6, 8: 4, 9: 2, 10: 1,
}

// Additional points awarded on top of the base score when the session is a
// sprint.
var sprintPoints = map[int]int{
	1: 8, 2: 7, 3: 6, 4: 5, 5: 4, 6: 3, 7: 2, 8: 1,
}

const fastestLapCutoff = 10

// Score maps a (position, sprint, fastest-lap) triple to a points value.
// Total and deterministic: every input yields a non-negative integer, nil
// position yields zero, and the fastest-lap bonus is withheld outside the
// top ten (an unknown position can never satisfy the cutoff).
func Score(position *int, sprint, fastestLap bool) int {
	if position == nil {
		return 0
	}

	points := basePoints[*position]
	if sprint {
		points += sprintPoints[*position]
	}
	if fastestLap && *position <= fastestLapCutoff {
		points++
	}

	return points
}

// ScoreRecord scores one normalized record using its own flags.
func ScoreRecord(rec Record) int {
	return Score(rec.Position, rec.Sprint, rec.FastestLap)
}
