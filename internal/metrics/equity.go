package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ksred/klear-journal/internal/types"
)

// LossDelta selects how a losing trade moves the simulated equity.
type LossDelta string

const (
	// LossDeltaRealized subtracts the loss magnitude, so losses always lower
	// equity regardless of how pips were signed when stored.
	LossDeltaRealized LossDelta = "realized"
	// LossDeltaLegacy adds -pips*pipValue, which raises equity when the
	// stored pips are already negative. Kept for charts that must match
	// numbers produced by the older dashboard.
	LossDeltaLegacy LossDelta = "legacy"
)

const (
	DefaultEquityBaseline = 1000
	DefaultPipValue       = 10

	startLabel = "Start"
	startTrade = "Initial"
	labelFmt   = "1/2/2006"
)

// EquityOptions configures the equity curve projection
type EquityOptions struct {
	Baseline  float64
	PipValue  float64
	LossDelta LossDelta
	// Location is used to render point labels; nil means UTC
	Location *time.Location
}

// DefaultEquityOptions returns a 1000 baseline, 10 per pip, realized losses.
func DefaultEquityOptions() EquityOptions {
	return EquityOptions{
		Baseline:  DefaultEquityBaseline,
		PipValue:  DefaultPipValue,
		LossDelta: LossDeltaRealized,
		Location:  time.UTC,
	}
}

// EquityPoint is a single point on the equity curve
type EquityPoint struct {
	Label  string  `json:"date"`
	Equity float64 `json:"equity"`
	Trade  string  `json:"trade"`
}

// EquityCurve projects cumulative equity over trades in date order. The first
// point is the baseline. Trades sharing a date keep their input order, so the
// curve for equal dates depends on the order the caller supplies.
func EquityCurve(trades []types.Trade, opts EquityOptions) []EquityPoint {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]types.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	equity := opts.Baseline
	points := make([]EquityPoint, 0, len(sorted)+1)
	points = append(points, EquityPoint{Label: startLabel, Equity: equity, Trade: startTrade})

	for _, t := range sorted {
		equity += equityDelta(t, opts)
		points = append(points, EquityPoint{
			Label:  t.Date.In(loc).Format(labelFmt),
			Equity: equity,
			Trade:  fmt.Sprintf("%s %s", t.Pair, t.Type),
		})
	}

	return points
}

func equityDelta(t types.Trade, opts EquityOptions) float64 {
	pips := t.PipsValue()
	if t.Result == types.OutcomeWin {
		return pips * opts.PipValue
	}
	if opts.LossDelta == LossDeltaLegacy {
		return -pips * opts.PipValue
	}
	return -math.Abs(pips) * opts.PipValue
}
