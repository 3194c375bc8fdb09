package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ksred/klear-journal/internal/types"
)

const (
	csvDateFmt       = "2006-01-02"
	csvFilenamePref  = "trading-journal-"
	riskRewardDigits = 2
)

// CSVHeader is the fixed column order of the journal export
var CSVHeader = []string{
	"Date",
	"Pair",
	"Type",
	"Entry",
	"Stop Loss",
	"Take Profit",
	"Result",
	"Pips",
	"Risk:Reward",
	"Notes",
}

// CSVRow renders the export fields of a trade in CSVHeader order
func CSVRow(t types.Trade) []string {
	pips := ""
	if t.Pips != nil {
		pips = FormatNumber(*t.Pips)
	}

	return []string{
		t.Date.UTC().Format(csvDateFmt),
		t.Pair,
		string(t.Type),
		FormatNumber(t.Entry),
		FormatNumber(t.StopLoss),
		FormatNumber(t.TakeProfit),
		string(t.Result),
		pips,
		FixedString(t.RiskReward, riskRewardDigits),
		t.Notes,
	}
}

// FormatCSV renders the header and one line per trade. Every field is
// double-quoted, embedded quotes are doubled, lines are joined with "\n" and
// there is no trailing newline.
func FormatCSV(trades []types.Trade) string {
	lines := make([]string, 0, len(trades)+1)
	lines = append(lines, csvLine(CSVHeader))
	for _, t := range trades {
		lines = append(lines, csvLine(CSVRow(t)))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes FormatCSV(trades) to w
func WriteCSV(w io.Writer, trades []types.Trade) error {
	if _, err := io.WriteString(w, FormatCSV(trades)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ExportFilename returns trading-journal-<YYYY-MM-DD>.csv for the UTC day of now
func ExportFilename(now time.Time) string {
	return csvFilenamePref + now.UTC().Format(csvDateFmt) + ".csv"
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
