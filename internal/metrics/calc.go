// Package metrics derives per-trade fields and aggregates trade collections
// into journal analytics. Everything here is pure and safe for concurrent use.
package metrics

import (
	"math"
	"strings"

	"github.com/ksred/klear-journal/internal/types"
)

const (
	pipUnitStandard = 0.0001
	pipUnitJPY      = 0.01
)

// RiskReward returns reward/risk measured from the entry. A non-positive risk
// (stop on the wrong side of, or at, the entry) yields 0.
func RiskReward(entry, stopLoss, takeProfit float64, side types.Side) float64 {
	var risk, reward float64
	if side == types.SideBuy {
		risk = entry - stopLoss
		reward = takeProfit - entry
	} else {
		risk = stopLoss - entry
		reward = entry - takeProfit
	}
	if risk > 0 {
		return reward / risk
	}
	return 0
}

// PipUnit returns the price size of one pip for the pair. The match on "JPY"
// is case-sensitive.
func PipUnit(pair string) float64 {
	if strings.Contains(pair, "JPY") {
		return pipUnitJPY
	}
	return pipUnitStandard
}

// PipDistance returns the unsigned distance between two prices in pips.
func PipDistance(entry, exit float64, pair string) float64 {
	return math.Abs(exit-entry) / PipUnit(pair)
}

// ExitPrice picks the price a trade closed at: take profit on a win, stop
// loss on a loss.
func ExitPrice(stopLoss, takeProfit float64, outcome types.Outcome) float64 {
	if outcome == types.OutcomeWin {
		return takeProfit
	}
	return stopLoss
}

// SignedPips applies the stored sign convention: losses are negated.
func SignedPips(magnitude float64, outcome types.Outcome) float64 {
	if outcome == types.OutcomeLoss && magnitude != 0 {
		return -magnitude
	}
	return magnitude
}

// Derive computes the stored pips and risk:reward for a validated input.
func Derive(in types.TradeInput) (pips, riskReward float64) {
	riskReward = RiskReward(in.Entry, in.StopLoss, in.TakeProfit, in.Type)
	exit := ExitPrice(in.StopLoss, in.TakeProfit, in.Result)
	pips = SignedPips(PipDistance(in.Entry, exit, in.Pair), in.Result)
	return pips, riskReward
}

// Apply overwrites the editable fields of t with in and re-derives pips and
// risk:reward. Identity, ownership and screenshot are left untouched.
func Apply(t *types.Trade, in types.TradeInput) {
	pips, rr := Derive(in)

	t.Date = in.Date
	t.Pair = in.Pair
	t.Type = in.Type
	t.Entry = in.Entry
	t.StopLoss = in.StopLoss
	t.TakeProfit = in.TakeProfit
	t.Result = in.Result
	t.Notes = in.Notes
	t.Pips = &pips
	t.RiskReward = rr
}
