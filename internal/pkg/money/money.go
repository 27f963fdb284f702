// Package money renders minor-unit amounts for display. Wire payloads never
// pass through here; they carry the raw integer.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rupee is the glyph prefixed to every rendered amount.
const Rupee = "₹"

// Major converts minor units (paise) to the major-unit decimal.
func Major(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Format renders minor units with two decimals and no grouping: 123456 -> ₹1234.56.
func Format(minor int64) string {
	return Rupee + Major(minor).StringFixed(2)
}

// FormatGrouped renders minor units with en-IN digit grouping: 123456789 -> ₹12,34,567.89.
func FormatGrouped(minor int64) string {
	s := Major(minor).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return Rupee + sign + groupIndian(whole) + "." + frac
}

// groupIndian places a separator after the last three digits and then after
// every two: 1234567 -> 12,34,567.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
