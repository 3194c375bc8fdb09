package trades

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/types"
)

const dateLayout = "2006-01-02"

var maxPrice = decimal.New(1, 9)

// ValidationError lists the request fields that failed validation
type ValidationError struct {
	fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// Fields returns the message for each invalid field
func (e *ValidationError) Fields() map[string]string {
	return e.fields
}

func (e *ValidationError) add(field, message string) {
	if e.fields == nil {
		e.fields = make(map[string]string)
	}
	e.fields[field] = message
}

func (e *ValidationError) orNil() error {
	if len(e.fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError returns an error for a single invalid field
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// ParseInput validates raw request values and converts them to a TradeInput.
// Every field is checked so the error reports all problems at once.
func ParseInput(values map[string]string) (types.TradeInput, error) {
	var (
		in   types.TradeInput
		verr ValidationError
	)

	if date, err := parseDate(values["date"]); err != nil {
		verr.add("date", err.Error())
	} else {
		in.Date = date
	}

	in.Pair = strings.ToUpper(strings.TrimSpace(values["pair"]))
	if in.Pair == "" {
		verr.add("pair", "is required")
	}

	switch strings.ToLower(strings.TrimSpace(values["type"])) {
	case "buy":
		in.Type = types.SideBuy
	case "sell":
		in.Type = types.SideSell
	case "":
		verr.add("type", "is required")
	default:
		verr.add("type", "must be Buy or Sell")
	}

	switch strings.ToLower(strings.TrimSpace(values["result"])) {
	case "win":
		in.Result = types.OutcomeWin
	case "loss":
		in.Result = types.OutcomeLoss
	case "":
		verr.add("result", "is required")
	default:
		verr.add("result", "must be Win or Loss")
	}

	prices := []struct {
		field string
		dst   *float64
	}{
		{"entry", &in.Entry},
		{"sl", &in.StopLoss},
		{"tp", &in.TakeProfit},
	}
	for _, p := range prices {
		v, err := parsePrice(values[p.field])
		if err != nil {
			verr.add(p.field, err.Error())
			continue
		}
		*p.dst = v
	}

	in.Notes = strings.TrimSpace(values["notes"])

	if err := verr.orNil(); err != nil {
		return types.TradeInput{}, err
	}

	// tiny stops against large targets can still overflow the ratio
	if pips, rr := metrics.Derive(in); !finite(pips) || !finite(rr) {
		return types.TradeInput{}, NewValidationError("entry", "gives pips or risk:reward out of range with sl and tp")
	}
	return in, nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("must be a decimal number")
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("must be greater than zero")
	}
	if d.GreaterThan(maxPrice) {
		return 0, fmt.Errorf("must not exceed %s", maxPrice)
	}
	f := d.InexactFloat64()
	if f <= 0 || !finite(f) {
		return 0, fmt.Errorf("is too small to store")
	}
	return f, nil
}

// parseDate accepts YYYY-MM-DD (UTC midnight) or RFC3339
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("is required")
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("must be YYYY-MM-DD or RFC3339")
}

// jsonValues flattens a JSON object body into the raw strings ParseInput
// expects. Numbers keep their literal text so decimals are parsed exactly.
func jsonValues(body map[string]json.RawMessage) map[string]string {
	values := make(map[string]string, len(body))
	for key, raw := range body {
		text := strings.TrimSpace(string(raw))
		switch {
		case text == "" || text == "null":
			continue
		case strings.HasPrefix(text, `"`):
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				values[key] = s
				continue
			}
			values[key] = text
		default:
			values[key] = text
		}
	}
	return values
}

// DateRange filters trades by date. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// ParseDateRange parses dateFrom and dateTo. A bare dateFrom starts at UTC
// midnight and a bare dateTo runs to the end of that day; RFC3339 values are
// used as given.
func ParseDateRange(from, to string) (DateRange, error) {
	var (
		r    DateRange
		verr ValidationError
	)

	if strings.TrimSpace(from) != "" {
		t, err := parseDate(from)
		if err != nil {
			verr.add("dateFrom", err.Error())
		} else {
			r.From = &t
		}
	}

	if to = strings.TrimSpace(to); to != "" {
		t, err := parseDate(to)
		if err != nil {
			verr.add("dateTo", err.Error())
		} else {
			if _, err := time.Parse(dateLayout, to); err == nil {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			r.To = &t
		}
	}

	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		verr.add("dateTo", "must not be before dateFrom")
	}

	if err := verr.orNil(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}
