package sprintf

import (
	"math"
	"strconv"
	"strings"
)

// renderFloat formats a finite f for the f, e, E, g and G conversions.
func renderFloat(conv byte, flags, width, prec int, f float64) string {
	neg := math.Signbit(f)
	a := math.Abs(f)
	var body string
	switch conv {
	case 'f':
		body = strconv.FormatFloat(a, 'f', prec, 64)
	case 'e', 'E':
		body = strconv.FormatFloat(a, conv, prec, 64)
	default:
		if prec == 0 {
			prec = 1
		}
		body = strconv.FormatFloat(a, conv, prec, 64)
	}
	if flags&fSharp != 0 {
		body = alternateFloat(body, conv, prec)
	}

	sign := ""
	switch {
	case neg:
		sign = "-"
	case flags&fPlus != 0:
		sign = "+"
	case flags&fSpace != 0:
		sign = " "
	}
	n := len(sign) + len(body)
	if n >= width {
		return sign + body
	}
	switch {
	case flags&fMinus != 0:
		return sign + body + strings.Repeat(" ", width-n)
	case flags&fZero != 0:
		return sign + strings.Repeat("0", width-n) + body
	}
	return strings.Repeat(" ", width-n) + sign + body
}

// alternateFloat applies the '#' flag: the decimal point is always shown
// and g conversions keep trailing zeros up to the precision.
func alternateFloat(body string, conv byte, prec int) string {
	mant, exp := body, ""
	if i := strings.IndexAny(body, "eE"); i >= 0 {
		mant, exp = body[:i], body[i:]
	}
	if !strings.Contains(mant, ".") {
		mant += "."
	}
	if conv == 'g' || conv == 'G' {
		if sig := significantDigits(mant); sig < prec {
			mant += strings.Repeat("0", prec-sig)
		}
	}
	return mant + exp
}

func significantDigits(mant string) int {
	digits := strings.Replace(mant, ".", "", 1)
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return len(digits)
	}
	return len(trimmed)
}

// nonFinite renders NaN and the infinities. Signs follow the + and space
// flags; zero padding does not apply.
func nonFinite(flags int, f float64) string {
	expr := "Inf"
	if math.IsNaN(f) {
		expr = "NaN"
	}
	switch {
	case !math.IsNaN(f) && f < 0:
		return "-" + expr
	case flags&fPlus != 0:
		return "+" + expr
	case flags&fSpace != 0:
		return " " + expr
	}
	return expr
}
