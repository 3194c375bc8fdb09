package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ksred/klear-journal/internal/types"
)

func TestRiskReward(t *testing.T) {
	testCases := []struct {
		name     string
		entry    float64
		stopLoss float64
		target   float64
		side     types.Side
		expected float64
	}{
		{name: "buy two to one", entry: 1.1000, stopLoss: 1.0950, target: 1.1100, side: types.SideBuy, expected: 2},
		{name: "sell two to one", entry: 110.00, stopLoss: 110.50, target: 109.00, side: types.SideSell, expected: 2},
		{name: "buy stop above entry", entry: 1.1000, stopLoss: 1.1050, target: 1.1100, side: types.SideBuy, expected: 0},
		{name: "buy stop at entry", entry: 1.1000, stopLoss: 1.1000, target: 1.1100, side: types.SideBuy, expected: 0},
		{name: "sell stop below entry", entry: 110.00, stopLoss: 109.50, target: 109.00, side: types.SideSell, expected: 0},
		{name: "target behind entry gives negative ratio", entry: 100, stopLoss: 90, target: 95, side: types.SideBuy, expected: -0.5},
		{name: "tiny risk is unbounded", entry: 100, stopLoss: 99.99, target: 200, side: types.SideBuy, expected: 10000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := RiskReward(tc.entry, tc.stopLoss, tc.target, tc.side)
			assert.InDelta(t, tc.expected, rr, 1e-6)
		})
	}
}

func TestPipUnit(t *testing.T) {
	assert.Equal(t, 0.0001, PipUnit("EURUSD"))
	assert.Equal(t, 0.01, PipUnit("USDJPY"))
	assert.Equal(t, 0.01, PipUnit("GBPJPY"))
	assert.Equal(t, 0.0001, PipUnit("usdjpy"), "JPY match is case-sensitive")
	assert.Equal(t, 0.0001, PipUnit(""))
}

func TestPipDistance(t *testing.T) {
	assert.InDelta(t, 100, PipDistance(1.1000, 1.1100, "EURUSD"), 1e-9)
	assert.InDelta(t, 100, PipDistance(1.1100, 1.1000, "EURUSD"), 1e-9, "distance is unsigned")
	assert.Equal(t, 100.0, PipDistance(110.00, 109.00, "USDJPY"))
	assert.Equal(t, 0.0, PipDistance(1.2, 1.2, "EURUSD"))
}

func TestSignedPips(t *testing.T) {
	assert.Equal(t, 50.0, SignedPips(50, types.OutcomeWin))
	assert.Equal(t, -50.0, SignedPips(50, types.OutcomeLoss))
	assert.Equal(t, "0", FormatNumber(SignedPips(0, types.OutcomeLoss)))
}

func TestDeriveScenario(t *testing.T) {
	inputs := []types.TradeInput{
		{Pair: "EURUSD", Type: types.SideBuy, Entry: 1.1000, StopLoss: 1.0950, TakeProfit: 1.1100, Result: types.OutcomeWin},
		{Pair: "USDJPY", Type: types.SideSell, Entry: 110.00, StopLoss: 110.50, TakeProfit: 109.00, Result: types.OutcomeWin},
		{Pair: "GBPUSD", Type: types.SideBuy, Entry: 1.2500, StopLoss: 1.2450, TakeProfit: 1.2600, Result: types.OutcomeLoss},
	}
	expectedPips := []float64{100, 100, -50}

	for i, in := range inputs {
		pips, rr := Derive(in)
		assert.InDelta(t, 2.0, rr, 1e-9, "trade %d", i)
		assert.InDelta(t, expectedPips[i], pips, 1e-9, "trade %d", i)
	}
}

func TestApply(t *testing.T) {
	trade := types.Trade{ID: "t-1", UserID: "u-1", ScreenshotURL: "https://img/x.png"}
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	Apply(&trade, types.TradeInput{
		Date:       date,
		Pair:       "GBPUSD",
		Type:       types.SideBuy,
		Entry:      1.2500,
		StopLoss:   1.2450,
		TakeProfit: 1.2600,
		Result:     types.OutcomeLoss,
		Notes:      "late entry",
	})

	assert.Equal(t, "t-1", trade.ID)
	assert.Equal(t, "u-1", trade.UserID)
	assert.Equal(t, "https://img/x.png", trade.ScreenshotURL)
	assert.Equal(t, date, trade.Date)
	assert.Equal(t, "late entry", trade.Notes)
	if assert.NotNil(t, trade.Pips) {
		assert.InDelta(t, -50, *trade.Pips, 1e-9)
	}
	assert.InDelta(t, 2, trade.RiskReward, 1e-9)
}
