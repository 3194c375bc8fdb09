package export

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/trades"
	"github.com/ksred/klear-journal/internal/types"
	"github.com/ksred/klear-journal/internal/users"
)

type fakeLister struct {
	trades []types.Trade
	last   trades.DateRange
}

// ListTrades applies the range like the trade store does
func (f *fakeLister) ListTrades(userID string, r trades.DateRange) ([]types.Trade, error) {
	f.last = r
	out := make([]types.Trade, 0, len(f.trades))
	for _, t := range f.trades {
		if r.From != nil && t.Date.Before(*r.From) {
			continue
		}
		if r.To != nil && t.Date.After(*r.To) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func trade(date string, pair string, side types.Side, entry, sl, tp float64, result types.Outcome, notes string) types.Trade {
	d, _ := time.Parse("2006-01-02", date)
	t := types.Trade{ID: date}
	metrics.Apply(&t, types.TradeInput{Date: d, Pair: pair, Type: side, Entry: entry, StopLoss: sl, TakeProfit: tp, Result: result, Notes: notes})
	return t
}

func scenario() []types.Trade {
	return []types.Trade{
		trade("2024-01-03", "GBPUSD", types.SideBuy, 1.2500, 1.2450, 1.2600, types.OutcomeLoss, ""),
		trade("2024-01-02", "USDJPY", types.SideSell, 110.00, 110.50, 109.00, types.OutcomeWin, `said "go"`),
		trade("2024-01-01", "EURUSD", types.SideBuy, 1.1000, 1.0950, 1.1100, types.OutcomeWin, ""),
	}
}

func newRouter(lister TradeLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := NewService(lister)
	s.now = func() time.Time { return time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC) }
	h := NewGinHandlers(s)

	router := gin.New()
	router.Use(func(c *gin.Context) { users.SetUser(c, &users.User{ID: "u1"}) })
	router.GET("/export", h.DownloadHandler())
	router.POST("/export", h.PreviewHandler())
	return router
}

func TestDownloadCSV(t *testing.T) {
	router := newRouter(&fakeLister{trades: scenario()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, `attachment; filename="trading-journal-2024-03-15.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))

	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"Date","Pair","Type","Entry","Stop Loss","Take Profit","Result","Pips","Risk:Reward","Notes"`, lines[0])
	assert.Equal(t, `"2024-01-02","USDJPY","Sell","110","110.5","109","Win","100","2.00","said ""go"""`, lines[2])
}

func TestDownloadEmptyAndBadFormat(t *testing.T) {
	router := newRouter(&fakeLister{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No trades found for export")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?dateTo=soon", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadDateFilter(t *testing.T) {
	lister := &fakeLister{trades: scenario()}
	router := newRouter(lister)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?dateFrom=2024-01-02&dateTo=2024-01-02", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, strings.Split(w.Body.String(), "\n"), 2)
	require.NotNil(t, lister.last.To)
	assert.Equal(t, time.Date(2024, 1, 2, 23, 59, 59, 999999999, time.UTC), *lister.last.To)
}

type previewBody struct {
	Data struct {
		Stats      metrics.Summary `json:"stats"`
		TradeCount int             `json:"trade_count"`
		DateRange  DateRange       `json:"date_range"`
		Preview    []types.Trade   `json:"preview"`
	} `json:"data"`
}

func postPreview(t *testing.T, router *gin.Engine, body string) previewBody {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(body))
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/export", nil)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out previewBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPreview(t *testing.T) {
	router := newRouter(&fakeLister{trades: scenario()})

	out := postPreview(t, router, "")
	assert.Equal(t, 3, out.Data.TradeCount)
	assert.Equal(t, 66.7, out.Data.Stats.WinRate)
	assert.Equal(t, 150.0, out.Data.Stats.TotalPips)
	assert.Equal(t, 2.0, out.Data.Stats.AvgRiskReward)
	assert.Equal(t, 4.0, out.Data.Stats.ProfitFactor)
	require.NotNil(t, out.Data.DateRange.From)
	assert.Equal(t, "2024-01-01T00:00:00Z", *out.Data.DateRange.From)
	assert.Equal(t, "2024-01-03T00:00:00Z", *out.Data.DateRange.To)
	assert.Len(t, out.Data.Preview, 3)

	out = postPreview(t, router, `{"dateFrom":"2024-01-02"}`)
	assert.Equal(t, 2, out.Data.TradeCount)
	assert.Equal(t, "2024-01-02", *out.Data.DateRange.From)
	assert.Equal(t, "2024-01-03T00:00:00Z", *out.Data.DateRange.To)
}

func TestPreviewEmptyAndLimited(t *testing.T) {
	out := postPreview(t, newRouter(&fakeLister{}), `{}`)
	assert.Equal(t, 0, out.Data.TradeCount)
	assert.Nil(t, out.Data.DateRange.From)
	assert.Nil(t, out.Data.DateRange.To)
	assert.Empty(t, out.Data.Preview)

	var many []types.Trade
	for i := 0; i < 8; i++ {
		many = append(many, scenario()...)
	}
	out = postPreview(t, newRouter(&fakeLister{trades: many}), `{}`)
	assert.Equal(t, 24, out.Data.TradeCount)
	assert.Len(t, out.Data.Preview, previewSize)
}
