package calculation

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rpgo/retirement-simulator/internal/domain"
	"github.com/rpgo/retirement-simulator/pkg/decimal"
)

// RoundToCents converts a full-precision cent value to Money, rounding half away from zero.
func RoundToCents(cents float64) domain.Money {
	return decimal.FromFloat(cents)
}

// PMT is the level payment that amortises pv down to -fv over n periods at rate.
func PMT(rate float64, n int, pv, fv float64) float64 {
	if n <= 0 {
		return pv + fv
	}
	if rate == 0 {
		return (pv + fv) / float64(n)
	}
	pow := math.Pow(1+rate, float64(n))
	return rate * (pv*pow + fv) / (pow - 1)
}

// AdjustForInflation grows value by annualRate for the given number of years.
func AdjustForInflation(value, annualRate float64, years int) float64 {
	return value * math.Pow(1+annualRate, float64(years))
}

// AnnualToMonthlyReturns converts annual mean/volatility to monthly parameters.
// Volatility uses the sqrt(12) approximation rather than exact compounding.
func AnnualToMonthlyReturns(annualReturn, annualStdDev float64) (monthlyMean, monthlyStdDev float64) {
	monthlyMean = math.Pow(1+annualReturn, 1.0/12) - 1
	monthlyStdDev = annualStdDev / math.Sqrt(12)
	return monthlyMean, monthlyStdDev
}

// RandomNormal draws from N(mean, stdDev) with the Box-Muller transform.
func RandomNormal(rng *rand.Rand, mean, stdDev float64) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	z0 := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return z0*stdDev + mean
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Median is the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// Percentile linearly interpolates between order statistics at (p/100)*(n-1).
// The input slice is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return slices.Min(values)
	}
	if p >= 100 {
		return slices.Max(values)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileSorted(sorted, p)
}

// percentileSorted is Percentile over an already-sorted, non-empty slice.
func percentileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	index := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// MoneyFloats converts cents to float64 for the statistics helpers.
func MoneyFloats(values []domain.Money) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Float()
	}
	return out
}
