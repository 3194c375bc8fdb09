package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ksred/klear-journal/internal/export"
	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/types"
)

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type tokenResponse struct {
	Token string `json:"jwt_token"`
}

type dashboard struct {
	Summary     metrics.Summary       `json:"summary"`
	EquityCurve []metrics.EquityPoint `json:"equity_curve"`
}

// tradeRequest is sent with prices as decimal strings
type tradeRequest struct {
	Date   string `json:"date"`
	Pair   string `json:"pair"`
	Type   string `json:"type"`
	Entry  string `json:"entry"`
	SL     string `json:"sl"`
	TP     string `json:"tp"`
	Result string `json:"result"`
	Notes  string `json:"notes,omitempty"`
}

// simulationClient drives the journal API and records per-route latency
type simulationClient struct {
	client *resty.Client
	stats  map[string]*routeStats
}

func newSimulationClient(baseURL string, timeout time.Duration) *simulationClient {
	return &simulationClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		stats: map[string]*routeStats{
			"auth":      {name: "Authentication"},
			"create":    {name: "Create Trade"},
			"list":      {name: "List Trades"},
			"analytics": {name: "Analytics"},
			"export":    {name: "Export CSV"},
			"preview":   {name: "Export Preview"},
		},
	}
}

func (sc *simulationClient) routes() []*routeStats {
	order := []string{"auth", "create", "list", "analytics", "export", "preview"}
	out := make([]*routeStats, 0, len(order))
	for _, k := range order {
		out = append(out, sc.stats[k])
	}
	return out
}

func (sc *simulationClient) timed(route string, fn func() error) error {
	start := time.Now()
	err := fn()
	sc.stats[route].record(time.Since(start), err != nil)
	return err
}

func checkResponse(resp *resty.Response, action string) error {
	if !resp.IsError() {
		return nil
	}
	return fmt.Errorf("%s failed with status %d: %s", action, resp.StatusCode(), resp.String())
}

// authenticate exchanges API credentials for a bearer token used by later calls
func (sc *simulationClient) authenticate(apiKey, apiSecret string) error {
	return sc.timed("auth", func() error {
		var result envelope[tokenResponse]
		resp, err := sc.client.R().
			SetBody(map[string]string{"api_key": apiKey, "api_secret": apiSecret}).
			SetResult(&result).
			Post("/api/v1/auth/token")
		if err != nil {
			return err
		}
		if err := checkResponse(resp, "authentication"); err != nil {
			return err
		}
		if result.Data.Token == "" {
			return fmt.Errorf("no token in response: %s", resp.String())
		}
		sc.client.SetAuthToken(result.Data.Token)
		return nil
	})
}

func (sc *simulationClient) createTrade(req tradeRequest) (*types.Trade, error) {
	var result envelope[types.Trade]
	err := sc.timed("create", func() error {
		resp, err := sc.client.R().
			SetBody(req).
			SetResult(&result).
			Post("/api/v1/trades")
		if err != nil {
			return err
		}
		return checkResponse(resp, "create trade")
	})
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (sc *simulationClient) listTrades() ([]types.Trade, error) {
	var result envelope[[]types.Trade]
	err := sc.timed("list", func() error {
		resp, err := sc.client.R().SetResult(&result).Get("/api/v1/trades")
		if err != nil {
			return err
		}
		return checkResponse(resp, "list trades")
	})
	return result.Data, err
}

func (sc *simulationClient) analytics() (*dashboard, error) {
	var result envelope[dashboard]
	err := sc.timed("analytics", func() error {
		resp, err := sc.client.R().SetResult(&result).Get("/api/v1/analytics")
		if err != nil {
			return err
		}
		return checkResponse(resp, "analytics")
	})
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (sc *simulationClient) exportCSV() (string, error) {
	var body string
	err := sc.timed("export", func() error {
		resp, err := sc.client.R().
			SetQueryParam("format", "csv").
			Get("/api/v1/export")
		if err != nil {
			return err
		}
		if err := checkResponse(resp, "export"); err != nil {
			return err
		}
		body = resp.String()
		return nil
	})
	return body, err
}

func (sc *simulationClient) previewExport(dateFrom string) (*export.Preview, error) {
	var result envelope[export.Preview]
	err := sc.timed("preview", func() error {
		resp, err := sc.client.R().
			SetBody(export.PreviewRequest{DateFrom: dateFrom}).
			SetResult(&result).
			Post("/api/v1/export")
		if err != nil {
			return err
		}
		return checkResponse(resp, "export preview")
	})
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// price renders a price at the pair's quote precision
func price(v float64, pair string) string {
	places := int32(5)
	if metrics.PipUnit(pair) == 0.01 {
		places = 3
	}
	return decimal.NewFromFloat(v).Round(places).String()
}
