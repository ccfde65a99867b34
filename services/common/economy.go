package common

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StartingPoints        = 100
	MinimumStake          = 10
	MinDeadlineHours      = 1
	MaxDeadlineHours      = 168
	MinParlayLegs         = 2
	MaxParlayLegs         = 10
	MaxSubTasks           = 10
	VerificationThreshold = 70
	FailurePenaltyPercent = 10
)

var parlayLegMultiplier = decimal.NewFromFloat(1.5)

// ProportionalPayout returns floor(stake / winningPool * totalPool). A zero winning pool pays nothing.
func ProportionalPayout(stake, winningPool, totalPool int64) int64 {
	if winningPool <= 0 || stake <= 0 {
		return 0
	}
	return stake * totalPool / winningPool
}

// ParlayPotentialPayout returns floor(stake * 1.5^legs).
func ParlayPotentialPayout(stake int64, legs int) int64 {
	if legs < 0 {
		legs = 0
	}
	multiplier := parlayLegMultiplier.Pow(decimal.NewFromInt(int64(legs)))
	return decimal.NewFromInt(stake).Mul(multiplier).Floor().IntPart()
}

// CompletionReward is the owner bonus for finishing a wager, tiered on how tight the deadline was.
func CompletionReward(deadlineHours int) int64 {
	switch {
	case deadlineHours <= 24:
		return 50
	case deadlineHours <= 48:
		return 35
	case deadlineHours <= 72:
		return 25
	default:
		return 15
	}
}

// FailurePenalty is max(1, floor(balance * 10%)) computed from the balance before the debit,
// never more than the balance itself.
func FailurePenalty(balance int64) int64 {
	penalty := balance * FailurePenaltyPercent / 100
	if penalty < 1 {
		penalty = 1
	}
	if balance >= 0 && penalty > balance {
		penalty = balance
	}
	if balance < 0 {
		penalty = 0
	}
	return penalty
}

// ClampBalance applies delta to balance without going below zero and returns the new balance
// together with the delta actually applied.
func ClampBalance(balance, delta int64) (int64, int64) {
	next := balance + delta
	if next < 0 {
		next = 0
	}
	return next, next - balance
}

// WeekBounds returns the ISO week containing t: Monday 00:00 UTC inclusive to the next
// Monday 00:00 UTC exclusive.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// ValidDeadlineHours reports whether h is inside the accepted wager horizon.
func ValidDeadlineHours(h int) bool {
	return h >= MinDeadlineHours && h <= MaxDeadlineHours
}
