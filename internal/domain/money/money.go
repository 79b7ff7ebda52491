// Package money holds the integer-cents arithmetic used for every billed amount.
//
// Amounts are int64 minor units. Decimal strings only appear at display and gateway
// boundaries (Parse, Format, ToMajor, FromMajor). Every derived amount is rounded
// exactly once, half away from zero.
package money

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units.
type Cents int64

// Rate is a percentage expressed in basis points (1500 = 15%).
type Rate int64

const (
	// BasisPointsPerUnit is 100% expressed in basis points.
	BasisPointsPerUnit Rate = 10000

	// DefaultVAT is the South African VAT rate.
	DefaultVAT Rate = 1500
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("invalid rate")
)

var hundred = decimal.NewFromInt(100)

func (c Cents) Int64() int64 { return int64(c) }

// Mul multiplies by an integer quantity. No rounding is involved.
func (c Cents) Mul(qty int64) Cents { return c * Cents(qty) }

// Abs returns the magnitude of c.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Sum adds amounts exactly.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}

// ApplyRate returns amount * rate, rounded once to the nearest cent.
func ApplyRate(amount Cents, rate Rate) Cents {
	return Cents(divRoundHalfUp(int64(amount)*int64(rate), int64(BasisPointsPerUnit)))
}

// Prorate returns monthly * usedDays / periodDays, rounded once to the nearest cent.
// usedDays is clamped to [0, periodDays].
func Prorate(monthly Cents, usedDays, periodDays int) Cents {
	if periodDays <= 0 || usedDays <= 0 {
		return 0
	}
	if usedDays >= periodDays {
		return monthly
	}
	return Cents(divRoundHalfUp(int64(monthly)*int64(usedDays), int64(periodDays)))
}

// divRoundHalfUp divides num by a positive den, rounding half away from zero.
func divRoundHalfUp(num, den int64) int64 {
	if num >= 0 {
		return (2*num + den) / (2 * den)
	}
	return -((2*(-num) + den) / (2 * den))
}

// ParseRate parses a percentage such as "15", "15.5" or "15%" into basis points.
// Precision beyond two decimals of a percent is rejected.
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidRate, "parse %q", s)
	}
	bp := d.Mul(hundred)
	if !bp.Equal(bp.Truncate(0)) {
		return 0, errors.Wrapf(ErrInvalidRate, "%q has more than two decimals", s)
	}
	if bp.IsNegative() || bp.GreaterThan(decimal.NewFromInt(int64(BasisPointsPerUnit))) {
		return 0, errors.Wrapf(ErrInvalidRate, "%q out of range", s)
	}
	return Rate(bp.IntPart()), nil
}

// String renders the rate as a percentage, e.g. "15%" or "15.5%".
func (r Rate) String() string {
	return decimal.New(int64(r), -2).String() + "%"
}

// Parse reads a display amount such as "R16.08", "R 1,234.50" or "-16.08" into cents.
// Sub-cent precision is rejected rather than rounded.
func Parse(s string) (Cents, error) {
	raw := strings.TrimSpace(s)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	for _, symbol := range []string{"ZAR", "R$", "R", "$", "€"} {
		if strings.HasPrefix(raw, symbol) {
			raw = strings.TrimPrefix(raw, symbol)
			break
		}
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}
	minor := d.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q has sub-cent precision", s)
	}
	c := Cents(minor.IntPart())
	if negative {
		c = -c
	}
	return c, nil
}

// Format renders cents for display, e.g. Format(123450, "ZAR") == "R1,234.50".
func Format(c Cents, currency string) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	major := strconv.FormatInt(int64(c)/100, 10)
	minor := int64(c) % 100

	var grouped strings.Builder
	for i, r := range major {
		if i > 0 && (len(major)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	return sign + symbol(currency) + grouped.String() + "." + pad2(minor)
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

func symbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "", "ZAR":
		return "R"
	case "USD":
		return "$"
	case "BRL":
		return "R$"
	case "EUR":
		return "€"
	default:
		return strings.ToUpper(currency) + " "
	}
}

// ToMajor converts cents to major units for gateways that take decimal amounts.
func ToMajor(c Cents) decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// FromMajor converts a gateway's major-unit amount to cents, rounding once.
func FromMajor(v decimal.Decimal) Cents {
	return Cents(v.Mul(hundred).Round(0).IntPart())
}
