package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"f1-platform/internal/clients"
)

// ergastTestServer serves canned season results and qualifying payloads.
// Seasons listed in failSeasons answer 503 to every request.
func ergastTestServer(t *testing.T, failSeasons map[int]bool) *httptest.Server {
	t.Helper()

	results := map[int]string{
		2021: `{"MRData": {"RaceTable": {"Races": [
			{"raceName": "Gazetted Grand Prix", "round": "1", "Results": [
				{"positionText": "1", "Driver": {"driverId": "max_verstappen", "givenName": "Max", "familyName": "Verstappen"},
					"FastestLap": {"rank": "1", "Time": {"time": "1:26.103"}}},
				{"positionText": "2", "Driver": {"driverId": "hamilton", "givenName": "Lewis", "familyName": "Hamilton"}},
				{"positionText": "3", "Driver": {"driverId": "bottas", "givenName": "Valtteri", "familyName": "Bottas"}},
				{"positionText": "R", "Driver": {"driverId": "perez", "givenName": "Sergio", "familyName": "Perez"}}
			]}
		]}}}`,
		2022: `{"MRData": {"RaceTable": {"Races": [
			{"raceName": "Gazetted Grand Prix", "round": "1", "Results": [
				{"positionText": "1", "Driver": {"driverId": "max_verstappen", "givenName": "Max", "familyName": "Verstappen"}},
				{"positionText": "2", "Driver": {"driverId": "leclerc", "givenName": "Charles", "familyName": "Leclerc"}},
				{"positionText": "3", "Driver": {"driverId": "hamilton", "givenName": "Lewis", "familyName": "Hamilton"}}
			]}
		]}}}`,
	}

	qualifying := map[int]string{
		2021: `{"MRData": {"RaceTable": {"Races": [
			{"raceName": "Gazetted Grand Prix", "round": "1", "QualifyingResults": [
				{"position": "1", "Driver": {"driverId": "hamilton", "givenName": "Lewis", "familyName": "Hamilton"}},
				{"position": "2", "Driver": {"driverId": "max_verstappen", "givenName": "Max", "familyName": "Verstappen"}}
			]}
		]}}}`,
		2022: `{"MRData": {"RaceTable": {"Races": [
			{"raceName": "Gazetted Grand Prix", "round": "1", "QualifyingResults": [
				{"position": "1", "Driver": {"driverId": "max_verstappen", "givenName": "Max", "familyName": "Verstappen"}}
			]}
		]}}}`,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var season int
		var kind string
		if _, err := fmt.Sscanf(r.URL.Path, "/%d/%s", &season, &kind); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if failSeasons[season] {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var payload string
		switch kind {
		case "results.json":
			payload = results[season]
		case "qualifying.json":
			payload = qualifying[season]
		}
		if payload == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(payload))
	}))
}

func standingsService(t *testing.T, repo *fakeRepo, baseURL string) *StandingsService {
	t.Helper()
	ergast := clients.NewErgastClient(baseURL, 5*time.Second, 1, testLogger(), testCollector)
	return NewStandingsService(repo, ergast, testLogger(), testCollector)
}

func TestRebuildStandingsTalliesSeasons(t *testing.T) {
	server := ergastTestServer(t, nil)
	defer server.Close()

	repo := newFakeRepo()
	svc := standingsService(t, repo, server.URL)

	result, err := svc.RebuildStandings(context.Background(), 2021, 2022, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SeasonsFetched != 2 || result.SeasonsFailed != 0 {
		t.Errorf("expected 2 seasons fetched, got %d fetched / %d failed",
			result.SeasonsFetched, result.SeasonsFailed)
	}

	verstappen := repo.standings["max_verstappen"]
	if verstappen == nil {
		t.Fatal("expected a standing for max_verstappen")
	}
	if verstappen.Wins != 2 || verstappen.Podiums != 2 || verstappen.Poles != 1 {
		t.Errorf("expected 2 wins, 2 podiums, 1 pole; got %d/%d/%d",
			verstappen.Wins, verstappen.Podiums, verstappen.Poles)
	}
	if verstappen.Name != "Max Verstappen" {
		t.Errorf("unexpected name %q", verstappen.Name)
	}
	// 2021: 25 for the win plus the fastest-lap bonus; 2022: 25.
	if verstappen.Points != 51 {
		t.Errorf("expected 51 points, got %d", verstappen.Points)
	}

	hamilton := repo.standings["hamilton"]
	if hamilton == nil {
		t.Fatal("expected a standing for hamilton")
	}
	if hamilton.Wins != 0 || hamilton.Podiums != 2 || hamilton.Poles != 1 {
		t.Errorf("expected 0 wins, 2 podiums, 1 pole; got %d/%d/%d",
			hamilton.Wins, hamilton.Podiums, hamilton.Poles)
	}
	if hamilton.Points != 33 {
		t.Errorf("expected 33 points (18 + 15), got %d", hamilton.Points)
	}

	// Retired entries carry no counters but still appear by name.
	perez := repo.standings["perez"]
	if perez == nil {
		t.Fatal("expected a standing for perez")
	}
	if perez.Wins != 0 || perez.Podiums != 0 {
		t.Error("retirement should not count as a classified finish")
	}
}

func TestRebuildStandingsSkipsFailedSeason(t *testing.T) {
	server := ergastTestServer(t, map[int]bool{2021: true})
	defer server.Close()

	repo := newFakeRepo()
	svc := standingsService(t, repo, server.URL)

	result, err := svc.RebuildStandings(context.Background(), 2021, 2022, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SeasonsFetched != 1 || result.SeasonsFailed != 1 {
		t.Errorf("expected 1 fetched and 1 failed, got %d/%d",
			result.SeasonsFetched, result.SeasonsFailed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(result.Errors))
	}

	// Only the 2022 win survives.
	verstappen := repo.standings["max_verstappen"]
	if verstappen == nil {
		t.Fatal("expected a standing for max_verstappen")
	}
	if verstappen.Wins != 1 {
		t.Errorf("expected 1 win from the surviving season, got %d", verstappen.Wins)
	}
}

func TestRebuildStandingsInvertedRange(t *testing.T) {
	repo := newFakeRepo()
	svc := standingsService(t, repo, "http://localhost:0")

	if _, err := svc.RebuildStandings(context.Background(), 2022, 2021, 5); err == nil {
		t.Error("expected error for inverted season range")
	}
}

func TestTopDriverOrdersByWinsThenPoles(t *testing.T) {
	server := ergastTestServer(t, nil)
	defer server.Close()

	repo := newFakeRepo()
	svc := standingsService(t, repo, server.URL)

	if _, err := svc.RebuildStandings(context.Background(), 2021, 2022, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := svc.TopDriver(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.DriverID != "max_verstappen" {
		t.Errorf("expected max_verstappen on top, got %s", top.DriverID)
	}
}
