package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/klear-journal/internal/config"
	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/trades"
	"github.com/ksred/klear-journal/internal/types"
	"github.com/ksred/klear-journal/internal/users"
)

type fakeLister struct {
	trades []types.Trade
	err    error
	calls  int
}

func (f *fakeLister) ListTradesByUserID(userID string, r trades.DateRange) ([]types.Trade, error) {
	f.calls++
	return f.trades, f.err
}

func trade(date string, pair string, side types.Side, entry, sl, tp float64, result types.Outcome) types.Trade {
	d, _ := time.Parse("2006-01-02", date)
	var t types.Trade
	metrics.Apply(&t, types.TradeInput{Date: d, Pair: pair, Type: side, Entry: entry, StopLoss: sl, TakeProfit: tp, Result: result})
	return t
}

func scenario() []types.Trade {
	// newest first, as the trade store returns them
	return []types.Trade{
		trade("2024-01-03", "GBPUSD", types.SideBuy, 1.2500, 1.2450, 1.2600, types.OutcomeLoss),
		trade("2024-01-02", "USDJPY", types.SideSell, 110.00, 110.50, 109.00, types.OutcomeWin),
		trade("2024-01-01", "EURUSD", types.SideBuy, 1.1000, 1.0950, 1.1100, types.OutcomeWin),
	}
}

func newTestService(t *testing.T, lister TradeLister) *Service {
	t.Helper()
	s, err := NewService(lister, config.Cache{TTL: time.Minute, MaxCost: 100}, metrics.DefaultEquityOptions())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestDashboard(t *testing.T) {
	s := newTestService(t, &fakeLister{trades: scenario()})

	d, err := s.Dashboard("u1")
	require.NoError(t, err)

	assert.Equal(t, 3, d.Summary.TotalTrades)
	assert.InDelta(t, 150, d.Summary.TotalPips, 1e-6)
	require.Len(t, d.EquityCurve, 4)
	assert.Equal(t, metrics.EquityPoint{Label: "Start", Equity: 1000, Trade: "Initial"}, d.EquityCurve[0])
	assert.Equal(t, "1/1/2024", d.EquityCurve[1].Label)
	assert.Equal(t, "EURUSD Buy", d.EquityCurve[1].Trade)
	assert.InDelta(t, 2000, d.EquityCurve[1].Equity, 1e-6)
	assert.InDelta(t, 3000, d.EquityCurve[2].Equity, 1e-6)
	assert.InDelta(t, 2500, d.EquityCurve[3].Equity, 1e-6)
}

func TestDashboardCache(t *testing.T) {
	lister := &fakeLister{trades: scenario()}
	s := newTestService(t, lister)

	_, err := s.Dashboard("u1")
	require.NoError(t, err)
	s.cache.Wait()

	_, err = s.Dashboard("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)

	s.Invalidate("u1")
	lister.trades = lister.trades[:1]

	d, err := s.Dashboard("u1")
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
	assert.Equal(t, 1, d.Summary.TotalTrades)
}

func TestDashboardError(t *testing.T) {
	s := newTestService(t, &fakeLister{err: errors.New("db down")})
	_, err := s.Dashboard("u1")
	assert.ErrorContains(t, err, "db down")
}

func TestEquityOptionsFromConfig(t *testing.T) {
	opts := EquityOptionsFromConfig(config.Equity{})
	assert.Equal(t, metrics.DefaultEquityOptions(), opts)

	opts = EquityOptionsFromConfig(config.Equity{Baseline: 5000, PipValue: 1, LossDelta: "legacy"})
	assert.Equal(t, 5000.0, opts.Baseline)
	assert.Equal(t, 1.0, opts.PipValue)
	assert.Equal(t, metrics.LossDeltaLegacy, opts.LossDelta)
}

func TestDashboardHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestService(t, &fakeLister{})

	router := gin.New()
	router.GET("/analytics", func(c *gin.Context) {
		users.SetUser(c, &users.User{ID: "u1"})
	}, NewGinHandlers(s).DashboardHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Summary     map[string]any   `json:"summary"`
			EquityCurve []map[string]any `json:"equity_curve"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0.0, body.Data.Summary["total_trades"])
	assert.Equal(t, 0.0, body.Data.Summary["profit_factor"])
	require.Len(t, body.Data.EquityCurve, 1)
	assert.Equal(t, "Start", body.Data.EquityCurve[0]["date"])
}
