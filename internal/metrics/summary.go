package metrics

import (
	"math"

	"github.com/ksred/klear-journal/internal/types"
)

// NoLossProfitFactor is reported as the profit factor when there are winning
// pips but no losing pips.
const NoLossProfitFactor = 999

// Summary holds the aggregate statistics for a set of trades
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	BuyTrades     int     `json:"buy_trades"`
	SellTrades    int     `json:"sell_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgRiskReward float64 `json:"avg_risk_reward"`
	TotalPips     float64 `json:"total_pips"`
	ProfitFactor  float64 `json:"profit_factor"`
	// ProfitFactorUnbounded is set when ProfitFactor holds NoLossProfitFactor
	ProfitFactorUnbounded bool `json:"profit_factor_unbounded"`
}

// Summarize reduces trades to a Summary. Sums are accumulated in input order.
func Summarize(trades []types.Trade) Summary {
	var s Summary
	var rrSum, winPips, lossPips float64

	for _, t := range trades {
		s.TotalTrades++
		switch t.Result {
		case types.OutcomeWin:
			s.WinningTrades++
			winPips += t.PipsValue()
		case types.OutcomeLoss:
			s.LosingTrades++
			lossPips += t.PipsValue()
		}
		switch t.Type {
		case types.SideBuy:
			s.BuyTrades++
		case types.SideSell:
			s.SellTrades++
		}
		rrSum += t.RiskReward
		s.TotalPips += t.PipsValue()
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
		s.AvgRiskReward = rrSum / float64(s.TotalTrades)
	}

	s.ProfitFactor, s.ProfitFactorUnbounded = profitFactor(winPips, math.Abs(lossPips))
	return s
}

func profitFactor(winPips, lossPips float64) (float64, bool) {
	switch {
	case lossPips > 0:
		return winPips / lossPips, false
	case winPips > 0:
		return NoLossProfitFactor, true
	default:
		return 0, false
	}
}
