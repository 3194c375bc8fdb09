package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ksred/klear-journal/internal/types"
)

func pips(v float64) *float64 { return &v }

// scenarioTrades derives the three-trade reference scenario
func scenarioTrades() []types.Trade {
	inputs := []types.TradeInput{
		{Date: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Pair: "EURUSD", Type: types.SideBuy, Entry: 1.1000, StopLoss: 1.0950, TakeProfit: 1.1100, Result: types.OutcomeWin},
		{Date: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), Pair: "USDJPY", Type: types.SideSell, Entry: 110.00, StopLoss: 110.50, TakeProfit: 109.00, Result: types.OutcomeWin},
		{Date: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), Pair: "GBPUSD", Type: types.SideBuy, Entry: 1.2500, StopLoss: 1.2450, TakeProfit: 1.2600, Result: types.OutcomeLoss},
	}
	trades := make([]types.Trade, len(inputs))
	for i, in := range inputs {
		Apply(&trades[i], in)
	}
	return trades
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, Summary{}, s)
	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.AvgRiskReward)
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.Equal(t, 0.0, s.TotalPips)
}

func TestSummarizeScenario(t *testing.T) {
	s := Summarize(scenarioTrades())

	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 1, s.LosingTrades)
	assert.Equal(t, 2, s.BuyTrades)
	assert.Equal(t, 1, s.SellTrades)
	assert.InDelta(t, 66.7, s.WinRate, 0.05)
	assert.InDelta(t, 2.0, s.AvgRiskReward, 1e-9)
	assert.InDelta(t, 150, s.TotalPips, 1e-9)
	assert.InDelta(t, 4.0, s.ProfitFactor, 1e-9)
	assert.False(t, s.ProfitFactorUnbounded)
}

func TestSummarizeProfitFactor(t *testing.T) {
	testCases := []struct {
		name      string
		trades    []types.Trade
		expected  float64
		unbounded bool
	}{
		{
			name: "only winners",
			trades: []types.Trade{
				{Result: types.OutcomeWin, Type: types.SideBuy, Pips: pips(40)},
				{Result: types.OutcomeWin, Type: types.SideSell, Pips: pips(10)},
			},
			expected:  NoLossProfitFactor,
			unbounded: true,
		},
		{
			name: "only losers",
			trades: []types.Trade{
				{Result: types.OutcomeLoss, Type: types.SideBuy, Pips: pips(-40)},
			},
			expected: 0,
		},
		{
			name: "winners with zero pips",
			trades: []types.Trade{
				{Result: types.OutcomeWin, Type: types.SideBuy, Pips: pips(0)},
			},
			expected: 0,
		},
		{
			name: "missing pips count as zero",
			trades: []types.Trade{
				{Result: types.OutcomeWin, Type: types.SideBuy},
				{Result: types.OutcomeLoss, Type: types.SideBuy, Pips: pips(-20)},
			},
			expected: 0,
		},
		{
			name: "mixed",
			trades: []types.Trade{
				{Result: types.OutcomeWin, Type: types.SideBuy, Pips: pips(30)},
				{Result: types.OutcomeLoss, Type: types.SideSell, Pips: pips(-10)},
				{Result: types.OutcomeLoss, Type: types.SideSell, Pips: pips(-5)},
			},
			expected: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.trades)
			assert.InDelta(t, tc.expected, s.ProfitFactor, 1e-9)
			assert.Equal(t, tc.unbounded, s.ProfitFactorUnbounded)
		})
	}
}

func TestSummarizeCountsAddUp(t *testing.T) {
	trades := []types.Trade{
		{Result: types.OutcomeWin, Type: types.SideBuy, Pips: pips(12), RiskReward: 1.5},
		{Result: types.OutcomeLoss, Type: types.SideBuy, Pips: pips(-8), RiskReward: 2},
		{Result: types.OutcomeLoss, Type: types.SideSell, Pips: pips(-3), RiskReward: 0},
		{Result: types.OutcomeWin, Type: types.SideSell, Pips: pips(25), RiskReward: 3.25},
		{Result: types.OutcomeWin, Type: types.SideSell, RiskReward: 1},
	}

	s := Summarize(trades)
	assert.Equal(t, s.TotalTrades, s.WinningTrades+s.LosingTrades)
	assert.Equal(t, s.TotalTrades, s.BuyTrades+s.SellTrades)
	assert.InDelta(t, 26, s.TotalPips, 1e-9)
	assert.InDelta(t, 60, s.WinRate, 1e-9)
	assert.InDelta(t, 1.55, s.AvgRiskReward, 1e-9)
}

func TestSummarizeOrderIndependent(t *testing.T) {
	trades := scenarioTrades()
	reversed := []types.Trade{trades[2], trades[1], trades[0]}

	a := Summarize(trades)
	b := Summarize(reversed)

	assert.Equal(t, a.TotalTrades, b.TotalTrades)
	assert.Equal(t, a.WinningTrades, b.WinningTrades)
	assert.Equal(t, a.BuyTrades, b.BuyTrades)
	assert.InDelta(t, a.WinRate, b.WinRate, 1e-9)
	assert.InDelta(t, a.AvgRiskReward, b.AvgRiskReward, 1e-9)
	assert.InDelta(t, a.TotalPips, b.TotalPips, 1e-9)
	assert.InDelta(t, a.ProfitFactor, b.ProfitFactor, 1e-9)
}
