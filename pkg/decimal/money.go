package decimal

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer minor currency units (cents).
type Money int64

var hundred = decimal.NewFromInt(100)

// FromFloat rounds a full-precision cent value to Money using round-half-away-from-zero.
func FromFloat(cents float64) Money {
	if math.IsNaN(cents) || math.IsInf(cents, 0) {
		return 0
	}
	return Money(math.Round(cents))
}

// FromDollars converts a dollar amount to cents, rounding half away from zero.
func FromDollars(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// ParseDollars parses a dollar string such as "1234.56".
func ParseDollars(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return FromDollars(d), nil
}

// Dollars returns the amount in dollars.
func (m Money) Dollars() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(hundred)
}

// Float returns the amount as a float64 cent value for intermediate math.
func (m Money) Float() float64 { return float64(m) }

// Annual converts a monthly amount to annual
func (m Money) Annual() Money { return m * 12 }

// IsPositive checks if the amount is positive
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative checks if the amount is negative
func (m Money) IsNegative() bool { return m < 0 }

// String returns the dollar representation with two decimals
func (m Money) String() string {
	return m.Dollars().StringFixed(2)
}

// Format formats the money amount with a currency sign
func (m Money) Format() string {
	if m < 0 {
		return "-$" + (-m).String()
	}
	return "$" + m.String()
}
