package output

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// FormatCurrency formats cents as USD currency with 2 decimals.
// Kept here so it can be reused by multiple formatters and unit tested in isolation.
func FormatCurrency(amount domain.Money) string { return amount.Format() }

// FormatPercentage formats a fraction (0.0425) as a percentage with 2 decimals.
func FormatPercentage(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(decimalHundred).StringFixed(2) + "%"
}

// centsString renders cents as a plain dollar amount for machine-readable output.
func centsString(amount domain.Money) string { return amount.String() }

func intToString(i int) string { return strconv.Itoa(i) }

func int64ToString(i int64) string { return strconv.FormatInt(i, 10) }

func floatToString(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

var decimalHundred = decimal.NewFromInt(100)
