// Package amount implements the shared money grammar: parsing of bid and
// base-price input, the minimum-increment ladder, and display formatting.
package amount

import (
	"fmt"
	"strings"

	"auction-house/internal/auctionerrors"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1000)
	million  = decimal.NewFromInt(1000000)
)

// Parse converts user input into an integer amount. Case-insensitive,
// commas are stripped, "5k" multiplies by 1,000 and "2.5m" by 1,000,000,
// everything else must be a plain number. The result is rounded to the
// nearest integer.
func Parse(text string) (int64, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, ",", "")
	if text == "" {
		return 0, auctionerrors.ErrInvalidAmount
	}

	multiplier := decimal.NewFromInt(1)
	switch {
	case strings.HasSuffix(text, "k"):
		multiplier = thousand
		text = strings.TrimSuffix(text, "k")
	case strings.HasSuffix(text, "m"):
		multiplier = million
		text = strings.TrimSuffix(text, "m")
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", auctionerrors.ErrInvalidAmount, text)
	}

	return d.Mul(multiplier).Round(0).IntPart(), nil
}

// ParseBasePrice parses a base-price entry, which additionally allows an
// optional leading "base:" prefix. A price of zero is valid.
func ParseBasePrice(text string) (int64, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimSpace(strings.TrimPrefix(text, "base:"))
	return Parse(text)
}

// MinIncrement returns the minimum bid increment for the given current
// amount. The ladder keys off the current amount, not the incoming bid;
// zero (no bids, no base price) uses the lowest tier.
func MinIncrement(current int64) int64 {
	switch {
	case current < 20000:
		return 1000
	case current < 40000:
		return 2000
	case current < 70000:
		return 3000
	case current < 100000:
		return 4000
	case current < 200000:
		return 5000
	case current < 400000:
		return 10000
	case current < 600000:
		return 20000
	case current < 800000:
		return 30000
	case current < 1000000:
		return 40000
	default:
		return 50000
	}
}

// Format renders an amount for display: "1.5M"-style for millions,
// "7.25k"-style for thousands, plain digits below that. Trailing ".00" and
// ".0" are collapsed. Display only, not required to round-trip.
func Format(amount int64) string {
	d := decimal.NewFromInt(amount)
	switch {
	case amount >= 1000000:
		return scaled(d.Shift(-6)) + "M"
	case amount >= 1000:
		return scaled(d.Shift(-3)) + "k"
	default:
		return d.String()
	}
}

func scaled(d decimal.Decimal) string {
	s := d.StringFixed(2)
	switch {
	case strings.HasSuffix(s, ".00"):
		return d.StringFixed(0)
	case strings.HasSuffix(s, "0"):
		return d.StringFixed(1)
	default:
		return s
	}
}
