// Package rating implements the Elo update applied after every match.
package rating

import "math"

const (
	// Baseline is the rating assumed for any player, or the bot, with
	// no recorded history. The bot's rating is never persisted.
	Baseline = 1000

	// KHuman is the K-factor for human-vs-human matches.
	KHuman = 32
	// KBot is the lower K-factor for matches against the bot, since
	// the opponent strength is fixed.
	KBot = 24
)

// Score is the actual result for the player whose rating is updated.
type Score float64

const (
	Loss Score = 0
	Draw Score = 0.5
	Win  Score = 1
)

// Expected returns the expected score for a player rated ra against an
// opponent rated rb.
func Expected(ra, rb int) float64 {
	return 1 / (1 + math.Pow(10, float64(rb-ra)/400))
}

// Update returns the new rating for a player rated ra who scored sa
// against an opponent rated rb.
func Update(ra, rb int, sa Score, k int) int {
	return int(math.Round(float64(ra) + float64(k)*(float64(sa)-Expected(ra, rb))))
}

// UpdatePair returns both new ratings for one match, sa being the first
// player's score. The raw adjustments are equal and opposite; only
// rounding can break the symmetry.
func UpdatePair(ra, rb int, sa Score, k int) (newRa, newRb int) {
	return Update(ra, rb, sa, k), Update(rb, ra, 1-sa, k)
}
