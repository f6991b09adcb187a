// Package currency converts between localized money strings and decimal amounts.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCode is used when neither an entry nor its form carries a currency.
const DefaultCode = "USD"

// Currency describes how amounts in a given ISO-4217 currency are written.
type Currency struct {
	Code              string
	SymbolLeft        string
	SymbolRight       string
	SymbolPadding     string
	ThousandSeparator string
	DecimalSeparator  string
	Decimals          int32
}

var known = map[string]Currency{
	"USD": {SymbolLeft: "$", ThousandSeparator: ",", DecimalSeparator: "."},
	"CAD": {SymbolLeft: "$", ThousandSeparator: ",", DecimalSeparator: "."},
	"AUD": {SymbolLeft: "$", ThousandSeparator: ",", DecimalSeparator: "."},
	"NZD": {SymbolLeft: "$", ThousandSeparator: ",", DecimalSeparator: "."},
	"MXN": {SymbolLeft: "$", ThousandSeparator: ",", DecimalSeparator: "."},
	"GBP": {SymbolLeft: "£", ThousandSeparator: ",", DecimalSeparator: "."},
	"JPY": {SymbolLeft: "¥", ThousandSeparator: ",", DecimalSeparator: "."},
	"INR": {SymbolLeft: "₹", ThousandSeparator: ",", DecimalSeparator: "."},
	"ZAR": {SymbolLeft: "R", SymbolPadding: " ", ThousandSeparator: ",", DecimalSeparator: "."},
	"EUR": {SymbolRight: "€", SymbolPadding: " ", ThousandSeparator: ".", DecimalSeparator: ","},
	"BRL": {SymbolLeft: "R$", ThousandSeparator: ".", DecimalSeparator: ","},
	"DKK": {SymbolLeft: "kr.", ThousandSeparator: ".", DecimalSeparator: ","},
	"CHF": {SymbolLeft: "Fr.", SymbolPadding: " ", ThousandSeparator: "'", DecimalSeparator: "."},
	"SEK": {SymbolRight: "kr", SymbolPadding: " ", ThousandSeparator: " ", DecimalSeparator: ","},
	"NOK": {SymbolLeft: "Kr", SymbolPadding: " ", ThousandSeparator: ".", DecimalSeparator: ","},
	"PLN": {SymbolRight: "zł", SymbolPadding: " ", ThousandSeparator: " ", DecimalSeparator: ","},
	"CZK": {SymbolRight: "Kč", SymbolPadding: " ", ThousandSeparator: " ", DecimalSeparator: ","},
	"HUF": {SymbolRight: "Ft", SymbolPadding: " ", ThousandSeparator: ".", DecimalSeparator: ","},
}

// Lookup returns the formatting conventions for code. Codes without an entry in
// the local table get US-style separators; codes that are not valid ISO-4217
// fall back to DefaultCode entirely.
func Lookup(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		code = DefaultCode
		unit = currency.USD
	}

	c, ok := known[code]
	if !ok {
		c = known[DefaultCode]
		c.SymbolLeft = ""
		c.SymbolRight = code
		c.SymbolPadding = " "
	}
	c.Code = code

	scale, _ := currency.Standard.Rounding(unit)
	c.Decimals = int32(scale)
	return c
}

// Valid reports whether code is a recognized ISO-4217 currency code.
func Valid(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// ToNumber converts localized text such as "$1,234.50" or "1.234,50 €" into a
// decimal. It reports false when no number can be recovered.
func (c Currency) ToNumber(text string) (decimal.Decimal, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(text); err == nil {
		return d, true
	}

	// A minus anywhere in the text, e.g. "5,00 €-", makes the amount negative.
	var (
		number   strings.Builder
		negative bool
	)
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			number.WriteRune(r)
		case r == '-':
			negative = true
		case string(r) == c.DecimalSeparator:
			number.WriteByte('.')
		}
	}

	digits := number.String()
	if negative {
		digits = "-" + digits
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Format renders amount with the currency's symbol and separators.
func (c Currency) Format(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	s := amount.Abs().StringFixed(c.Decimals)

	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if c.SymbolLeft != "" {
		b.WriteString(c.SymbolLeft)
		b.WriteString(c.SymbolPadding)
	}
	b.WriteString(groupThousands(whole, c.ThousandSeparator))
	if frac != "" {
		b.WriteString(c.DecimalSeparator)
		b.WriteString(frac)
	}
	if c.SymbolRight != "" {
		b.WriteString(c.SymbolPadding)
		b.WriteString(c.SymbolRight)
	}
	return b.String()
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
