// Package tictactoe holds the pure rules for 3x3 tic-tac-toe: winner
// detection, move legality and the bot move policy. Nothing here keeps
// state; randomness is supplied by the caller.
package tictactoe

import (
	"errors"
	"math/rand"
)

// Mark is a player's symbol on the board.
type Mark string

const (
	MarkX Mark = "X"
	MarkO Mark = "O"
)

// Board is the 3x3 grid in row-major order. An empty cell holds "".
type Board [9]Mark

// Result is the terminal status of a board.
type Result int

const (
	ResultInProgress Result = iota
	ResultDraw
	ResultXWins
	ResultOWins
)

var winLines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // cols
	{0, 4, 8}, {2, 4, 6}, // diags
}

// CheckWinner scans the 8 standard lines. Draw only when every cell is
// filled and no line wins.
func CheckWinner(b Board) Result {
	for _, line := range winLines {
		m := b[line[0]]
		if m != "" && m == b[line[1]] && m == b[line[2]] {
			if m == MarkX {
				return ResultXWins
			}
			return ResultOWins
		}
	}
	for _, c := range b {
		if c == "" {
			return ResultInProgress
		}
	}
	return ResultDraw
}

// Rejection reasons for LegalMove.
var (
	ErrOutOfRange   = errors.New("cell index out of range")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrCellOccupied = errors.New("cell occupied")
)

// LegalMove validates a proposed move without applying it. turn and seat
// are seat indices; turn is whose move the board expects.
func LegalMove(b Board, cell, turn, seat int) error {
	if cell < 0 || cell > 8 {
		return ErrOutOfRange
	}
	if seat != turn {
		return ErrNotYourTurn
	}
	if b[cell] != "" {
		return ErrCellOccupied
	}
	return nil
}

// BotMove picks a cell for the bot. With probability randomChance it
// plays uniformly at random among empty cells; otherwise it takes an
// immediate win, blocks an immediate opponent win, takes the center, a
// random empty corner, then a random empty side, in that order.
// Returns -1 only when the board is full.
func BotMove(b Board, bot, opponent Mark, randomChance float64, rng *rand.Rand) int {
	var empty []int
	for i, c := range b {
		if c == "" {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return -1
	}

	if rng.Float64() < randomChance {
		return empty[rng.Intn(len(empty))]
	}

	if cell := completingCell(b, bot); cell >= 0 {
		return cell
	}
	if cell := completingCell(b, opponent); cell >= 0 {
		return cell
	}
	if b[4] == "" {
		return 4
	}
	if cell := randomFrom(b, [4]int{0, 2, 6, 8}, rng); cell >= 0 {
		return cell
	}
	return randomFrom(b, [4]int{1, 3, 5, 7}, rng)
}

// completingCell finds the empty cell of a line where mark already holds
// the other two, or -1.
func completingCell(b Board, mark Mark) int {
	for _, line := range winLines {
		have, open := 0, -1
		for _, i := range line {
			switch b[i] {
			case mark:
				have++
			case "":
				open = i
			}
		}
		if have == 2 && open >= 0 {
			return open
		}
	}
	return -1
}

func randomFrom(b Board, cells [4]int, rng *rand.Rand) int {
	var open []int
	for _, i := range cells {
		if b[i] == "" {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return -1
	}
	return open[rng.Intn(len(open))]
}
