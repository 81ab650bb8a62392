package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	// RealMsPerGameDay is the wall-clock duration of one in-game day (one month of the calendar).
	RealMsPerGameDay = 60_000
	// DaysPerYear is the number of game days in a game year.
	DaysPerYear = 12
	// GameDatePlaceholder is shown when no game day is known.
	GameDatePlaceholder = "---"
)

// ProjectedGameDay extrapolates the game day from the last observed snapshot.
// Elapsed time is clamped at zero so the result never drops below the
// snapshot's game day, even when now precedes the observation.
func ProjectedGameDay(snapshot *BankSnapshot, now time.Time) (float64, bool) {
	if snapshot == nil {
		return 0, false
	}

	elapsedMs := now.Sub(snapshot.ObservedAt).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}

	return snapshot.GameDay + float64(elapsedMs)/RealMsPerGameDay, true
}

// SecondsUntilNextMonth returns whole seconds until the next integer game-day boundary.
func SecondsUntilNextMonth(projected float64) (int, bool) {
	if math.IsNaN(projected) || math.IsInf(projected, 0) {
		return 0, false
	}

	frac := projected - math.Floor(projected)
	remainingMs := math.Max(0, (1-frac)*RealMsPerGameDay)

	return int(math.Ceil(remainingMs / 1000)), true
}

// GameYearMonth maps a game day to a 1-indexed year and month.
func GameYearMonth(day float64) (year, month int, ok bool) {
	if math.IsNaN(day) || math.IsInf(day, 0) {
		return 0, 0, false
	}

	total := int(math.Floor(day))
	year = floorDiv(total, DaysPerYear) + 1
	month = total - floorDiv(total, DaysPerYear)*DaysPerYear + 1

	return year, month, true
}

// GameMonthIndex is the inverse of GameYearMonth: the first game day of year/month.
func GameMonthIndex(year, month int) int {
	return (year-1)*DaysPerYear + (month - 1)
}

// GameDateString renders a game day as "Y{year} M{month}".
func GameDateString(day float64) string {
	year, month, ok := GameYearMonth(day)
	if !ok {
		return GameDatePlaceholder
	}
	return fmt.Sprintf("Y%d M%d", year, month)
}

// GameDateStringPtr is GameDateString for an optional game day.
func GameDateStringPtr(day *float64) string {
	if day == nil {
		return GameDatePlaceholder
	}
	return GameDateString(*day)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
