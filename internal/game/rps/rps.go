// Package rps holds the pure rules for rock-paper-scissors.
package rps

import "math/rand"

// Hand is a rock/paper/scissors choice.
type Hand string

const (
	Rock     Hand = "rock"
	Paper    Hand = "paper"
	Scissors Hand = "scissors"
)

var hands = [3]Hand{Rock, Paper, Scissors}

// ParseHand validates a client-supplied choice.
func ParseHand(s string) (Hand, bool) {
	switch Hand(s) {
	case Rock, Paper, Scissors:
		return Hand(s), true
	}
	return "", false
}

// Result is the outcome of one round.
type Result int

const (
	ResultDraw Result = iota
	ResultAWins
	ResultBWins
)

// beats maps each hand to the hand it defeats.
var beats = map[Hand]Hand{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// Resolve applies the standard cyclic dominance.
func Resolve(a, b Hand) Result {
	switch {
	case a == b:
		return ResultDraw
	case beats[a] == b:
		return ResultAWins
	default:
		return ResultBWins
	}
}

// BotChoice picks a hand uniformly at random.
func BotChoice(rng *rand.Rand) Hand {
	return hands[rng.Intn(len(hands))]
}
