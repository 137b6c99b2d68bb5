package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"f1-platform/internal/analysis"
	"f1-platform/internal/clients"
	"f1-platform/internal/models"
	"f1-platform/internal/repository"
	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

// StandingsService builds career standings (wins, podiums, poles) from the
// historical results archive and persists them.
type StandingsService struct {
	repo    repository.F1Repository
	ergast  *clients.ErgastClient
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// StandingsResult contains statistics for one standings rebuild.
type StandingsResult struct {
	Seasons         int
	SeasonsFetched  int
	SeasonsFailed   int
	Drivers         int
	Duration        time.Duration
	Errors          []string
}

// seasonTally is the per-season contribution of one fetch task.
type seasonTally struct {
	season  int
	names   map[string]string
	wins    map[string]int
	podiums map[string]int
	poles   map[string]int
	points  map[string]int
	err     error
}

// NewStandingsService creates a new standings service.
func NewStandingsService(repo repository.F1Repository, ergast *clients.ErgastClient, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StandingsService {
	return &StandingsService{
		repo:    repo,
		ergast:  ergast,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// RebuildStandings fetches every season in [from, to] over a bounded worker
// pool, merges the per-season tallies, and upserts one standings row per
// driver. A failed season is logged and skipped; its counts are simply
// absent from the totals.
func (s *StandingsService) RebuildStandings(ctx context.Context, from, to, workers int) (*StandingsResult, error) {
	startTime := time.Now()

	if from > to {
		return nil, fmt.Errorf("season range inverted: %d..%d", from, to)
	}
	if workers < 1 {
		workers = 1
	}

	result := &StandingsResult{
		Seasons: to - from + 1,
		Errors:  make([]string, 0),
	}

	s.logger.Info(ctx, "[STANDINGS_START] Starting standings rebuild", logging.Fields{
		"season_from": from,
		"season_to":   to,
		"workers":     workers,
		"stage":       "INITIALIZATION",
	})

	seasons := make(chan int)
	tallies := make(chan seasonTally)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for season := range seasons {
				tallies <- s.fetchSeason(ctx, season)
			}
		}()
	}

	go func() {
		for season := from; season <= to; season++ {
			seasons <- season
		}
		close(seasons)
		wg.Wait()
		close(tallies)
	}()

	names := make(map[string]string)
	wins := make(map[string]int)
	podiums := make(map[string]int)
	poles := make(map[string]int)
	points := make(map[string]int)

	for tally := range tallies {
		if tally.err != nil {
			errMsg := fmt.Sprintf("season %d: %v", tally.season, tally.err)
			result.Errors = append(result.Errors, errMsg)
			result.SeasonsFailed++
			s.logger.Error(ctx, "[STANDINGS_SEASON_ERROR] Season fetch failed", logging.Fields{
				"season": tally.season,
				"stage":  "SEASON_FETCH",
			}, tally.err)
			s.metrics.RecordIngestionError("season_error")
			continue
		}

		result.SeasonsFetched++
		for id, name := range tally.names {
			names[id] = name
		}
		for id, n := range tally.wins {
			wins[id] += n
		}
		for id, n := range tally.podiums {
			podiums[id] += n
		}
		for id, n := range tally.poles {
			poles[id] += n
		}
		for id, n := range tally.points {
			points[id] += n
		}
	}

	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		standing := &models.DriverStanding{
			DriverID: id,
			Name:     names[id],
			Wins:     wins[id],
			Podiums:  podiums[id],
			Poles:    poles[id],
			Points:   points[id],
		}
		if err := s.repo.UpsertStanding(ctx, standing); err != nil {
			return nil, fmt.Errorf("failed to upsert standing for %s: %w", id, err)
		}
	}
	result.Drivers = len(ids)

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[STANDINGS_COMPLETE] Standings rebuild completed", logging.Fields{
		"seasons":          result.Seasons,
		"seasons_fetched":  result.SeasonsFetched,
		"seasons_failed":   result.SeasonsFailed,
		"drivers":          result.Drivers,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// fetchSeason fetches one season's race results and qualifying
// classifications and tallies wins, podiums, and poles per driver.
func (s *StandingsService) fetchSeason(ctx context.Context, season int) seasonTally {
	tally := seasonTally{
		season:  season,
		names:   make(map[string]string),
		wins:    make(map[string]int),
		podiums: make(map[string]int),
		poles:   make(map[string]int),
		points:  make(map[string]int),
	}

	races, err := s.ergast.SeasonResults(ctx, season)
	if err != nil {
		tally.err = fmt.Errorf("results: %w", err)
		return tally
	}

	for _, race := range races {
		for _, res := range race.Results {
			id := res.Driver.DriverID
			tally.names[id] = res.Driver.FullName()

			// positionText carries "R" for retirements; only numeric
			// classifications count.
			pos, err := strconv.Atoi(res.PositionText)
			if err != nil {
				continue
			}
			if pos == 1 {
				tally.wins[id]++
			}
			if pos <= 3 {
				tally.podiums[id]++
			}

			// The archive marks the session's fastest lap with rank "1";
			// that feeds the scoring bonus.
			fastestLap := res.FastestLap != nil && res.FastestLap.Rank == "1"
			tally.points[id] += analysis.Score(&pos, false, fastestLap)
		}
	}

	qualifying, err := s.ergast.SeasonQualifying(ctx, season)
	if err != nil {
		tally.err = fmt.Errorf("qualifying: %w", err)
		return tally
	}

	for _, race := range qualifying {
		if len(race.QualifyingResults) == 0 {
			continue
		}
		top := race.QualifyingResults[0]
		tally.names[top.Driver.DriverID] = top.Driver.FullName()
		tally.poles[top.Driver.DriverID]++
	}

	s.logger.Debug(ctx, "[STANDINGS_SEASON] Season tallied", logging.Fields{
		"season":  season,
		"races":   len(races),
		"drivers": len(tally.names),
		"stage":   "SEASON_COMPLETE",
	})

	return tally
}

// TopDriver answers the leader question against the persisted standings,
// ordering wins, then poles, then podiums, all descending.
func (s *StandingsService) TopDriver(ctx context.Context) (*models.DriverStanding, error) {
	standings, _, err := s.repo.ListStandings(ctx, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	if len(standings) == 0 {
		return nil, &repository.NotFoundError{Resource: "standing", ID: "leader"}
	}
	return standings[0], nil
}
