// Package report computes the trailing-7-day hydration aggregates the
// weekly summary message is built from.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

const windowDays = 7

type Summary struct {
	DaysLogged    int
	TotalWaterML  float64
	AvgCaffeineMG float64
	// GoalPct is total water over the weekly goal (GoalLiters x 1000 x 7),
	// as a percentage rounded to 1 decimal and capped at 100.
	GoalPct float64
}

// Summarize aggregates the records falling inside the trailing 7-day window
// ending at now. ok is false when no record qualifies; such users get no
// weekly message.
func Summarize(cfg *domain.UserConfig, records []*domain.HydrationRecord, now time.Time) (Summary, bool) {
	cutoff := now.Add(-windowDays * 24 * time.Hour)

	var totalWater, totalCaffeine float64
	var n int
	for _, rec := range records {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		totalWater += rec.WaterML
		totalCaffeine += rec.CaffeineMG
		n++
	}
	if n == 0 {
		return Summary{}, false
	}

	goalML := cfg.GoalLiters * 1000 * windowDays
	pct := math.Min(100, round1(totalWater/goalML*100))

	return Summary{
		DaysLogged:    n,
		TotalWaterML:  totalWater,
		AvgCaffeineMG: totalCaffeine / float64(n),
		GoalPct:       pct,
	}, true
}

// Format renders the summary message sent to the user.
func (s Summary) Format(username string) string {
	return fmt.Sprintf(
		"Weekly Hydration Summary for %s\n"+
			"Days Logged: %d/%d\n"+
			"Total Water Intake: %d ml\n"+
			"Avg Caffeine: %.1f mg\n"+
			"Goal Completion: %g%%",
		username, s.DaysLogged, windowDays, int(s.TotalWaterML), s.AvgCaffeineMG, s.GoalPct)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
