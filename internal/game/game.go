package game

// Type identifies a supported game variant.
type Type string

const (
	TicTacToe Type = "ttt"
	RPS       Type = "rps"
)

// Valid reports whether t names a known game type.
func (t Type) Valid() bool {
	return t == TicTacToe || t == RPS
}

// Difficulty is the bot strength for matches against the computer.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a client-supplied string to a difficulty,
// falling back to medium for anything unknown.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s)
	}
	return Medium
}

// RandomChance is the probability that the bot plays a uniformly random
// cell instead of its heuristic move.
func (d Difficulty) RandomChance() float64 {
	switch d {
	case Easy:
		return 0.7
	case Hard:
		return 0.1
	}
	return 0.35
}
