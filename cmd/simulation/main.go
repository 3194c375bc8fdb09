package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/klear-journal/internal/export"
)

const (
	minTrades  = 15
	maxTrades  = 150
	numWorkers = 5
)

type instrument struct {
	pair string
	mid  float64
}

var (
	instruments = []instrument{
		{"EURUSD", 1.0850},
		{"GBPUSD", 1.2650},
		{"AUDUSD", 0.6550},
		{"USDJPY", 149.50},
		{"EURJPY", 162.20},
	}
	sides   = []string{"Buy", "Sell"}
	results = []string{"Win", "Loss"}
)

// init configures pretty console logging for the simulation
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// main seeds a running journal API with random trades from concurrent
// workers, then reads analytics and exports back and prints latency stats
func main() {
	addr := flag.String("addr", "http://localhost:8080", "journal API base URL")
	apiKey := flag.String("key", "demo-key", "API key")
	apiSecret := flag.String("secret", "demo-secret", "API secret")
	count := flag.Int("trades", 0, "number of trades to create (random when 0)")
	flag.Parse()

	sc := newSimulationClient(*addr, 10*time.Second)
	if err := sc.authenticate(*apiKey, *apiSecret); err != nil {
		log.Fatal().Err(err).Msg("Failed to authenticate")
	}

	target := *count
	if target <= 0 {
		target = rand.Intn(maxTrades-minTrades) + minTrades
	}
	log.Info().Int("target_trades", target).Msg("Starting simulation")

	start := time.Now()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		failed  int
	)
	for i := 0; i < numWorkers; i++ {
		n := target / numWorkers
		if i < target%numWorkers {
			n++
		}
		wg.Add(1)
		go func(workerID, n int) {
			defer wg.Done()
			ok, bad := createTrades(workerID, n, sc)
			mu.Lock()
			created += ok
			failed += bad
			mu.Unlock()
		}(i, n)
	}
	wg.Wait()

	log.Info().Int("trades_created", created).Int("failed", failed).Msg("All trades submitted")

	list, err := sc.listTrades()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list trades")
	}

	d, err := sc.analytics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch analytics")
	}

	csv, err := sc.exportCSV()
	if err != nil {
		log.Error().Err(err).Msg("Failed to export trades")
	}

	from := time.Now().AddDate(0, 0, -30).UTC().Format("2006-01-02")
	preview, err := sc.previewExport(from)
	if err != nil {
		log.Error().Err(err).Msg("Failed to preview export")
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("TRADING JOURNAL SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
Trades created:    %d
Failed creates:    %d
Trades listed:     %d
Win rate:          %.1f%%
Total pips:        %.1f
Avg R:R:           %.2f
Profit factor:     %.2f
Final equity:      %.2f
CSV lines:         %d
Last 30 days:      %d
Duration:          %v
`,
		created, failed, len(list),
		d.Summary.WinRate, d.Summary.TotalPips, d.Summary.AvgRiskReward, d.Summary.ProfitFactor,
		finalEquity(d), csvLines(csv), previewCount(preview),
		time.Since(start).Round(time.Millisecond))

	printPerformanceStats(os.Stdout, sc.routes())
}

// createTrades submits n random trades and returns how many succeeded and failed
func createTrades(workerID, n int, sc *simulationClient) (created, failed int) {
	for i := 0; i < n; i++ {
		req := randomTrade()
		trade, err := sc.createTrade(req)
		if err != nil {
			failed++
			log.Error().Err(err).
				Int("worker_id", workerID).
				Str("pair", req.Pair).
				Msg("Failed to create trade")
			continue
		}
		created++
		log.Info().
			Int("worker_id", workerID).
			Str("trade_id", trade.ID).
			Str("pair", trade.Pair).
			Str("type", string(trade.Type)).
			Str("result", string(trade.Result)).
			Float64("pips", trade.PipsValue()).
			Float64("rr", trade.RiskReward).
			Msg("Trade created")

		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
	return created, failed
}

// randomTrade builds a trade from the last 60 days with a stop 10-50 pips
// away and a target at 0.5-3R
func randomTrade() tradeRequest {
	inst := instruments[rand.Intn(len(instruments))]
	side := sides[rand.Intn(len(sides))]

	pip := 0.0001
	if strings.Contains(inst.pair, "JPY") {
		pip = 0.01
	}
	entry := inst.mid * (1 + (rand.Float64()-0.5)/50)
	stop := float64(10+rand.Intn(41)) * pip
	target := stop * (0.5 + rand.Float64()*2.5)

	sl, tp := entry-stop, entry+target
	if side == "Sell" {
		sl, tp = entry+stop, entry-target
	}

	date := time.Now().UTC().AddDate(0, 0, -rand.Intn(60))
	return tradeRequest{
		Date:   date.Format("2006-01-02"),
		Pair:   inst.pair,
		Type:   side,
		Entry:  price(entry, inst.pair),
		SL:     price(sl, inst.pair),
		TP:     price(tp, inst.pair),
		Result: results[rand.Intn(len(results))],
		Notes:  "simulated",
	}
}

func finalEquity(d *dashboard) float64 {
	if d == nil || len(d.EquityCurve) == 0 {
		return 0
	}
	return d.EquityCurve[len(d.EquityCurve)-1].Equity
}

func csvLines(csv string) int {
	if csv == "" {
		return 0
	}
	return len(strings.Split(csv, "\n")) - 1
}

func previewCount(p *export.Preview) int {
	if p == nil {
		return 0
	}
	return p.TradeCount
}
