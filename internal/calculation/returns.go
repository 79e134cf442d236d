package calculation

import (
	"math/rand/v2"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// Assumption defaults used when a configured value is zero.
var (
	DefaultExpectedReturns = domain.AssetWeights{Stocks: 0.08, Bonds: 0.04, Cash: 0.02}
	DefaultVolatility      = domain.AssetWeights{Stocks: 0.18, Bonds: 0.06, Cash: 0.01}
)

// ReturnGenerator draws normally distributed monthly returns from annual
// assumptions for manual-mode paths.
type ReturnGenerator struct {
	rng *rand.Rand
}

// NewReturnGenerator creates a generator with a reproducible seed.
func NewReturnGenerator(seed int64) *ReturnGenerator {
	return &ReturnGenerator{rng: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Generate returns one sample per month for the given assumptions.
func (g *ReturnGenerator) Generate(assumptions domain.ReturnAssumptions, months int) []domain.AssetReturns {
	var mean, sd domain.AssetWeights
	for _, asset := range domain.AssetClasses {
		m, s := monthlyAssumption(assumptions, asset)
		mean.Set(asset, m)
		sd.Set(asset, s)
	}

	out := make([]domain.AssetReturns, max(months, 0))
	for m := range out {
		for _, asset := range domain.AssetClasses {
			out[m].Set(asset, RandomNormal(g.rng, mean.Get(asset), sd.Get(asset)))
		}
	}
	return out
}

// ExpectedMonthlyReturns converts the annual expected returns, with defaults
// applied, into monthly means.
func ExpectedMonthlyReturns(assumptions domain.ReturnAssumptions) domain.AssetReturns {
	var out domain.AssetReturns
	for _, asset := range domain.AssetClasses {
		m, _ := monthlyAssumption(assumptions, asset)
		out.Set(asset, m)
	}
	return out
}

func monthlyAssumption(assumptions domain.ReturnAssumptions, asset domain.AssetClass) (mean, sd float64) {
	var vol domain.AssetWeights
	if assumptions.AnnualVolatility != nil {
		vol = *assumptions.AnnualVolatility
	}
	expected := orDefault(assumptions.AnnualExpectedReturn.Get(asset), DefaultExpectedReturns.Get(asset))
	return AnnualToMonthlyReturns(expected, orDefault(vol.Get(asset), DefaultVolatility.Get(asset)))
}

// ConstantReturns repeats the same monthly sample for every month.
func ConstantReturns(r domain.AssetReturns, months int) []domain.AssetReturns {
	out := make([]domain.AssetReturns, max(months, 0))
	for i := range out {
		out[i] = r
	}
	return out
}
