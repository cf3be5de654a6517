// Package currency parses catalog prices and renders them as localized money.
package currency

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultLocale   = "es-PE"
	DefaultCurrency = "PEN"
)

// leadingNumber matches the longest numeric prefix, the same prefix a
// lenient float parser accepts ("12.5kg" -> "12.5").
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParsePrice converts a textual price into a decimal. Anything that does
// not start with a number is worth zero.
func ParsePrice(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	prefix := leadingNumber.FindString(s)
	if prefix == "" {
		return decimal.Zero
	}
	sign := ""
	switch prefix[0] {
	case '-':
		sign, prefix = "-", prefix[1:]
	case '+':
		prefix = prefix[1:]
	}
	if strings.HasPrefix(prefix, ".") {
		prefix = "0" + prefix
	}
	d, err := decimal.NewFromString(sign + strings.TrimSuffix(prefix, "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromFloat converts a numeric price. NaN and infinities are worth zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Format renders amount with the locale's currency symbol and separators,
// always with two fraction digits. Unknown locales or currency codes fall
// back to es-PE and PEN.
func Format(amount decimal.Decimal, locale, code string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.MustParseISO(DefaultCurrency)
	}

	p := message.NewPrinter(tag)
	return p.Sprintf("%v %v", currency.Symbol(unit), number.Decimal(amount.InexactFloat64(), number.Scale(2)))
}

// FormatPrice is Format over a textual price.
func FormatPrice(price, locale, code string) string {
	return Format(ParsePrice(price), locale, code)
}
