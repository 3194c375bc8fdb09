package metrics

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FixedString formats x with exactly digits decimals. Rounding is done on the
// exact binary value and ties go away from zero, which is how browsers
// render Number.prototype.toFixed; strconv rounds ties to even.
func FixedString(x float64, digits int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.Abs(x) >= 1e21:
		return FormatNumber(x)
	}

	neg := x < 0
	r := new(big.Rat).SetFloat64(math.Abs(x))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom())

	s := n.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Round returns x rounded to digits decimals using FixedString's rules.
func Round(x float64, digits int) float64 {
	v, err := strconv.ParseFloat(FixedString(x, digits), 64)
	if err != nil {
		return x
	}
	return v
}

// FormatNumber renders x with the shortest representation that round-trips,
// switching to exponent notation outside [1e-6, 1e21) like a JavaScript
// number-to-string conversion.
func FormatNumber(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case x == 0:
		return "0"
	}

	abs := math.Abs(x)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}

	s := strconv.FormatFloat(x, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}
