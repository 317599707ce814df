package engine

import "math"

// K-factors control rating volatility per contest type. Tournament matches
// swing harder than casual game nights.
const (
	KFactorNight      = 24
	KFactorTournament = 40

	// DefaultRating substitutes for users without a rating row. Missing data
	// gets this default; invalid requests are rejected, never defaulted.
	DefaultRating = 1000
)

// RatingDelta returns the signed Elo-style rating change for a player against
// a reference rating (an opponent's rating for tournament matches, the table
// mean for game nights). The delta magnitude never exceeds kFactor.
// Rounding is half-away-from-zero.
func RatingDelta(playerRating, referenceRating float64, won bool, kFactor int) int {
	expected := 1 / (1 + math.Pow(10, (referenceRating-playerRating)/400))
	actual := 0.0
	if won {
		actual = 1
	}
	return int(math.Round(float64(kFactor) * (actual - expected)))
}
