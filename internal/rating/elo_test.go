package rating

import (
	"math"
	"testing"
)

func TestEvenMatchWin(t *testing.T) {
	newRa, newRb := UpdatePair(1000, 1000, Win, KHuman)
	if newRa != 1016 {
		t.Fatalf("winner: expected 1016, got %d", newRa)
	}
	if newRb != 984 {
		t.Fatalf("loser: expected 984, got %d", newRb)
	}
}

func TestEvenMatchDraw(t *testing.T) {
	newRa, newRb := UpdatePair(1000, 1000, Draw, KHuman)
	if newRa != 1000 || newRb != 1000 {
		t.Fatalf("draw between equals should not move ratings, got %d/%d", newRa, newRb)
	}
}

func TestLoss(t *testing.T) {
	newRa, newRb := UpdatePair(1000, 1000, Loss, KHuman)
	if newRa != 984 || newRb != 1016 {
		t.Fatalf("expected 984/1016, got %d/%d", newRa, newRb)
	}
}

func TestUnderdogWinPaysMore(t *testing.T) {
	newRa, _ := UpdatePair(1000, 1200, Win, KHuman)
	gain := newRa - 1000
	newRc, _ := UpdatePair(1200, 1000, Win, KHuman)
	favoriteGain := newRc - 1200
	if gain <= favoriteGain {
		t.Fatalf("underdog gain %d should exceed favorite gain %d", gain, favoriteGain)
	}
}

func TestAdjustmentSymmetry(t *testing.T) {
	// Raw adjustments are equal and opposite before rounding, for any
	// rating gap and score.
	for _, gap := range []int{0, 50, 137, 400, 799} {
		for _, sa := range []Score{Loss, Draw, Win} {
			ra, rb := 1000, 1000+gap
			deltaA := float64(KHuman) * (float64(sa) - Expected(ra, rb))
			deltaB := float64(KHuman) * (float64(1-sa) - Expected(rb, ra))
			if math.Abs(deltaA+deltaB) > 1e-9 {
				t.Fatalf("gap %d score %v: deltas %f and %f are not opposite", gap, sa, deltaA, deltaB)
			}
		}
	}
}

func TestExpectedBounds(t *testing.T) {
	if e := Expected(1000, 1000); e != 0.5 {
		t.Fatalf("equal ratings: expected 0.5, got %f", e)
	}
	if e := Expected(1400, 1000); e <= 0.5 || e >= 1 {
		t.Fatalf("favorite expectation out of range: %f", e)
	}
	if e := Expected(1000, 1400); e >= 0.5 || e <= 0 {
		t.Fatalf("underdog expectation out of range: %f", e)
	}
}

func TestBotKFactorIsGentler(t *testing.T) {
	humanGain := Update(1000, Baseline, Win, KHuman) - 1000
	botGain := Update(1000, Baseline, Win, KBot) - 1000
	if botGain >= humanGain {
		t.Fatalf("bot-match gain %d should be below human-match gain %d", botGain, humanGain)
	}
}
