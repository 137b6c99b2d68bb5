package analysis

import (
	"errors"
	"sort"

	"f1-platform/internal/models"
)

// ErrNoDriverFound is returned when a ranking question is asked over an
// empty aggregate set.
var ErrNoDriverFound = errors.New("no driver found")

// Rank returns a copy of the standings in leaderboard order: wins
// descending, then pole positions descending, then podiums descending.
// The sort is stable, so fully tied drivers keep their input order.
func Rank(standings []models.DriverStanding) []models.DriverStanding {
	ranked := make([]models.DriverStanding, len(standings))
	copy(ranked, standings)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Wins != ranked[j].Wins {
			return ranked[i].Wins > ranked[j].Wins
		}
		if ranked[i].Poles != ranked[j].Poles {
			return ranked[i].Poles > ranked[j].Poles
		}
		return ranked[i].Podiums > ranked[j].Podiums
	})

	return ranked
}

// Leader answers "which driver leads" over a set of standings using the
// Rank ordering. The repository's TopDriver query expresses the same
// ordering relationally and must agree on the winner for the same
// underlying rows. Returns ErrNoDriverFound for an empty set.
func Leader(standings []models.DriverStanding) (models.DriverStanding, error) {
	if len(standings) == 0 {
		return models.DriverStanding{}, ErrNoDriverFound
	}

	return Rank(standings)[0], nil
}
