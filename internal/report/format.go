package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

var cityNames = map[string]string{
	"CDG": "Paris",
	"LHR": "Londres",
	"FCO": "Roma",
}

// City names an airport for humans, falling back to the code.
func City(code string) string {
	if name, ok := cityNames[code]; ok {
		return name
	}
	return code
}

// FormatBRL renders an amount as "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + FormatNumber(d, 2)
}

// FormatNumber renders d with Brazilian separators: dots for thousands and a
// comma before the decimals.
func FormatNumber(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return sign + b.String()
}
