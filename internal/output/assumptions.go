package output

import (
	"fmt"
	"strings"

	"github.com/rpgo/retirement-simulator/internal/calculation"
	"github.com/rpgo/retirement-simulator/internal/domain"
)

// GenerateAssumptions creates dynamic assumptions list from actual config values
func GenerateAssumptions(cfg *domain.SimulationConfig) []string {
	if cfg == nil {
		return nil
	}
	out := []string{
		fmt.Sprintf("Horizon: %d months from %s (starting age %d)", cfg.Calendar.DurationMonths, cfg.Calendar.StartMonth, cfg.Core.StartingAgeYears),
		fmt.Sprintf("Inflation: %s annually", FormatPercentage(cfg.Economics.AnnualInflationRate)),
		fmt.Sprintf("Withdrawal strategy: %s, withdrawals from month %d", cfg.WithdrawalStrategy.Kind, cfg.Core.WithdrawalsStartMonth),
		"Drawdown: " + describeDrawdown(cfg.DrawdownStrategy),
		"Spending bounds: " + describeSpending(cfg.Spending),
	}

	if cfg.Mode == domain.ModeMonteCarlo && cfg.MonteCarlo != nil {
		r := calculation.RangeForEra(cfg.MonteCarlo.Era)
		out = append(out, fmt.Sprintf("Returns: %d paths resampled from %s (%d-%d)",
			cfg.MonteCarlo.Iterations, cfg.MonteCarlo.Era, r.StartYear, r.EndYear))
	} else {
		expected := make([]string, 0, len(domain.AssetClasses))
		for _, asset := range domain.AssetClasses {
			rate := cfg.Portfolio.Assumptions.AnnualExpectedReturn.Get(asset)
			if rate == 0 {
				rate = calculation.DefaultExpectedReturns.Get(asset)
			}
			expected = append(expected, fmt.Sprintf("%s %s", asset, FormatPercentage(rate)))
		}
		out = append(out, "Expected returns: "+strings.Join(expected, ", "))
	}
	return out
}

func describeDrawdown(ds domain.DrawdownStrategyConfig) string {
	switch p := ds.Params.(type) {
	case domain.BucketParams:
		order := make([]string, len(p.Order))
		for i, a := range p.Order {
			order[i] = string(a)
		}
		return "bucket (" + strings.Join(order, " > ") + ")"
	case domain.RebalancingParams:
		t := p.TargetAllocation
		s := fmt.Sprintf("rebalancing to %s/%s/%s stocks/bonds/cash",
			FormatPercentage(t.Stocks), FormatPercentage(t.Bonds), FormatPercentage(t.Cash))
		if p.GlidePathEnabled && len(p.GlidePath) > 0 {
			s += fmt.Sprintf(" with a %d-point glide path", len(p.GlidePath))
		}
		return s
	}
	return string(ds.Kind)
}

func describeSpending(s domain.SpendingPolicy) string {
	ceiling := "no ceiling"
	if s.MonthlyMaxSpend > 0 {
		ceiling = FormatCurrency(s.MonthlyMaxSpend) + "/month ceiling"
	}
	return fmt.Sprintf("%s/month floor, %s (today's money)", FormatCurrency(s.MonthlyMinSpend), ceiling)
}
