package engine

import "math"

// Average is the per-player team average for one game: zero when no roster
// member scored, otherwise total/count rounded to two decimals. Two-decimal
// rounding is the display contract, not a precision choice.
func Average(total float64, count int) float64 {
	if count == 0 {
		return 0.0
	}
	return math.Round(total/float64(count)*100) / 100
}

// FieldAverage is the unweighted arithmetic mean of the team totals for one
// game.
func FieldAverage(totals []float64) float64 {
	if len(totals) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range totals {
		sum += t
	}
	return sum / float64(len(totals))
}

// Differential is a team's total minus the field average for one game.
func Differential(teamTotal, fieldAverage float64) float64 {
	return teamTotal - fieldAverage
}
