package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"f1-platform/internal/analysis"
	"f1-platform/internal/models"
)

// One-shot analysis over a CSV export of the positions table: runs the
// full pipeline (normalize, dedupe, score, aggregate) and prints a report
// without touching the database.
func main() {
	csvPath := flag.String("csv", "position.csv", "CSV export of position records")
	sessionType := flag.String("session-type", models.SessionTypeRace, "Session context for the aggregates")
	trendDriver := flag.String("trend", "", "Driver to print a rolling position trend for")
	trendWindow := flag.Int("trend-window", 10, "Rolling mean window for the trend")
	flag.Parse()

	file, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open CSV: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	rows, err := analysis.ReadRawRows(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read CSV: %v\n", err)
		os.Exit(1)
	}

	records := analysis.Normalize(rows)
	deduped := analysis.Dedupe(records)
	aggregates := analysis.Aggregate(deduped, *sessionType)

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("DRIVER PERFORMANCE - %s (%d rows, %d after dedupe)\n", *sessionType, len(records), len(deduped))
	fmt.Println(strings.Repeat("=", 80))

	results := make([]*analysis.DriverAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		results = append(results, agg)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalPoints != results[j].TotalPoints {
			return results[i].TotalPoints > results[j].TotalPoints
		}
		return results[i].Driver < results[j].Driver
	})

	fmt.Printf("%-10s %7s %7s %7s %9s %5s %5s %6s %8s %10s\n",
		"DRIVER", "RECORDS", "EVENTS", "POINTS", "MEAN POS", "MIN", "MAX", "WINS", "PODIUMS", "MEAN LAP")

	for _, agg := range results {
		meanPos := "-"
		if agg.MeanPosition != nil {
			meanPos = fmt.Sprintf("%.2f", *agg.MeanPosition)
		}
		minPos, maxPos := "-", "-"
		if agg.MinPosition != nil {
			minPos = fmt.Sprintf("%d", *agg.MinPosition)
		}
		if agg.MaxPosition != nil {
			maxPos = fmt.Sprintf("%d", *agg.MaxPosition)
		}
		meanLap := "-"
		if agg.MeanLapTime != nil {
			meanLap = models.FormatLapTime(*agg.MeanLapTime)
		}

		fmt.Printf("%-10s %7d %7d %7d %9s %5s %5s %6d %8d %10s\n",
			agg.Driver, agg.RecordCount, agg.EventCount, agg.TotalPoints,
			meanPos, minPos, maxPos, agg.Wins, agg.Podiums, meanLap)
	}

	if *trendDriver != "" {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Printf("POSITION TREND - driver %s (window %d)\n", *trendDriver, *trendWindow)
		fmt.Println(strings.Repeat("=", 80))

		driverRecords := make([]analysis.Record, 0)
		for _, rec := range records {
			if rec.Driver == *trendDriver {
				driverRecords = append(driverRecords, rec)
			}
		}

		for _, point := range analysis.Trend(driverRecords, *trendWindow) {
			fmt.Printf("%s  position %2d  rolling mean %.2f\n",
				point.Date.Format("2006-01-02 15:04:05"), point.Position, point.RollingMean)
		}
	}
}
