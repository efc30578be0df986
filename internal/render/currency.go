package render

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const defaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
}

// FormatPrice renders a server-computed amount in the store's currency. The
// amount is formatted from the decimal itself, never recomputed through a
// float; an unknown or empty currency code falls back to USD.
func FormatPrice(amount decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" {
		code = defaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	code = unit.String()

	scale, _ := currency.Standard.Rounding(unit)
	formatted := groupThousands(amount.StringFixed(int32(scale)))

	if symbol, ok := currencySymbols[code]; ok {
		return symbol + formatted
	}
	return code + " " + formatted
}

// groupThousands inserts comma separators into the integer part of a fixed
// decimal string such as "-1234567.50".
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	if hasFrac {
		return sign + intPart + "." + fracPart
	}
	return sign + intPart
}
