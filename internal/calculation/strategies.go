package calculation

import (
	"fmt"
	"math"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// StrategyContext is the snapshot handed to a withdrawal strategy at the start
// of each simulated year. Money values are float cents.
type StrategyContext struct {
	Year                  int
	PortfolioValue        float64
	InitialPortfolioValue float64
	// PreviousWithdrawal is last year's clamped annual withdrawal (0 in year 1).
	PreviousWithdrawal float64
	PreviousYearReturn float64
	RemainingYears     int
	InflationRate      float64
	// CAPE of zero means no valuation ratio was supplied for the month.
	CAPE   float64
	Params domain.StrategyParams
}

// CalculateWithdrawal returns the gross annual withdrawal for the context.
// The result is never negative, NaN or infinite.
func CalculateWithdrawal(ctx StrategyContext) float64 {
	var w float64
	switch p := ctx.Params.(type) {
	case domain.ConstantDollarParams:
		w = constantDollar(ctx, p)
	case domain.PercentOfPortfolioParams:
		w = ctx.PortfolioValue * orDefault(p.AnnualRate, 0.04)
	case domain.OneOverNParams:
		w = oneOverN(ctx)
	case domain.VPWParams:
		w = vpw(ctx, p)
	case domain.DynamicSWRParams:
		w = dynamicSWR(ctx, p)
	case domain.SensibleWithdrawalsParams:
		w = sensibleWithdrawals(ctx, p)
	case domain.NinetyFivePercentParams:
		w = ninetyFivePercent(ctx, p)
	case domain.GuytonKlingerParams:
		w = guytonKlinger(ctx, p)
	case domain.VanguardDynamicParams:
		w = vanguardDynamic(ctx, p)
	case domain.EndowmentParams:
		w = endowment(ctx, p)
	case domain.HebelerAutopilotParams:
		w = hebelerAutopilot(ctx, p)
	case domain.CAPEBasedParams:
		w = capeBased(ctx, p)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// ResolveStrategyParams returns cfg.Params, or the zero-valued (all defaults)
// params for cfg.Kind when none were supplied.
func ResolveStrategyParams(cfg domain.WithdrawalStrategyConfig) (domain.StrategyParams, error) {
	if cfg.Params != nil {
		if cfg.Kind != "" && cfg.Params.StrategyKind() != cfg.Kind {
			return nil, fmt.Errorf("withdrawal strategy %q has params for %q", cfg.Kind, cfg.Params.StrategyKind())
		}
		return cfg.Params, nil
	}
	switch cfg.Kind {
	case domain.ConstantDollar:
		return domain.ConstantDollarParams{}, nil
	case domain.PercentOfPortfolio:
		return domain.PercentOfPortfolioParams{}, nil
	case domain.OneOverN:
		return domain.OneOverNParams{}, nil
	case domain.VPW:
		return domain.VPWParams{}, nil
	case domain.DynamicSWR:
		return domain.DynamicSWRParams{}, nil
	case domain.SensibleWithdrawals:
		return domain.SensibleWithdrawalsParams{}, nil
	case domain.NinetyFivePercent:
		return domain.NinetyFivePercentParams{}, nil
	case domain.GuytonKlinger:
		return domain.GuytonKlingerParams{}, nil
	case domain.VanguardDynamic:
		return domain.VanguardDynamicParams{}, nil
	case domain.Endowment:
		return domain.EndowmentParams{}, nil
	case domain.HebelerAutopilot:
		return domain.HebelerAutopilotParams{}, nil
	case domain.CAPEBased:
		return domain.CAPEBasedParams{}, nil
	}
	return nil, fmt.Errorf("unknown withdrawal strategy %q", cfg.Kind)
}

// orDefault treats an unset (zero) parameter as its documented default.
func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func constantDollar(ctx StrategyContext, p domain.ConstantDollarParams) float64 {
	if ctx.Year == 1 {
		return ctx.InitialPortfolioValue * orDefault(p.InitialWithdrawalRate, 0.04)
	}
	return ctx.PreviousWithdrawal * (1 + ctx.InflationRate)
}

func oneOverN(ctx StrategyContext) float64 {
	if ctx.RemainingYears > 0 {
		return ctx.PortfolioValue / float64(ctx.RemainingYears)
	}
	return ctx.PortfolioValue
}

func vpw(ctx StrategyContext, p domain.VPWParams) float64 {
	realReturn := orDefault(p.ExpectedRealReturn, 0.03)
	target := orDefault(p.DrawdownTarget, 1.0)
	residual := (1 - target) * ctx.PortfolioValue
	return PMT(realReturn, ctx.RemainingYears, ctx.PortfolioValue, -residual)
}

func dynamicSWR(ctx StrategyContext, p domain.DynamicSWRParams) float64 {
	r := orDefault(p.ExpectedRateOfReturn, 0.06)
	i := ctx.InflationRate
	n := ctx.RemainingYears
	if n <= 0 {
		return ctx.PortfolioValue
	}
	if r == i {
		return ctx.PortfolioValue / float64(n)
	}
	return ctx.PortfolioValue * (r - i) / (1 - math.Pow((1+i)/(1+r), float64(n)))
}

func sensibleWithdrawals(ctx StrategyContext, p domain.SensibleWithdrawalsParams) float64 {
	base := ctx.PortfolioValue * orDefault(p.BaseWithdrawalRate, 0.03)
	realGain := ctx.PreviousYearReturn - ctx.InflationRate
	if realGain <= 0 {
		return base
	}
	return base + ctx.PortfolioValue*realGain*orDefault(p.ExtrasWithdrawalRate, 0.10)
}

func ninetyFivePercent(ctx StrategyContext, p domain.NinetyFivePercentParams) float64 {
	target := ctx.PortfolioValue * orDefault(p.AnnualWithdrawalRate, 0.04)
	return math.Max(target, ctx.PreviousWithdrawal*orDefault(p.MinimumFloor, 0.95))
}

func guytonKlinger(ctx StrategyContext, p domain.GuytonKlingerParams) float64 {
	iwr := orDefault(p.InitialWithdrawalRate, 0.052)
	capTrigger := orDefault(p.CapitalPreservationTrigger, 0.20)
	capCut := orDefault(p.CapitalPreservationCut, 0.10)
	prosTrigger := orDefault(p.ProsperityTrigger, 0.20)
	prosRaise := orDefault(p.ProsperityRaise, 0.10)
	sunset := p.GuardrailsSunset
	if sunset == 0 {
		sunset = 15
	}

	if ctx.Year == 1 {
		return ctx.InitialPortfolioValue * iwr
	}
	if ctx.PortfolioValue <= 0 {
		return 0
	}

	withdrawal := ctx.PreviousWithdrawal * (1 + ctx.InflationRate)
	if ctx.PreviousYearReturn < 0 && withdrawal/ctx.PortfolioValue > iwr {
		withdrawal = ctx.PreviousWithdrawal
	}

	if ctx.RemainingYears <= sunset {
		return withdrawal
	}
	if withdrawal/ctx.PortfolioValue > iwr*(1+capTrigger) {
		withdrawal *= 1 - capCut
	}
	if withdrawal/ctx.PortfolioValue < iwr*(1-prosTrigger) {
		withdrawal *= 1 + prosRaise
	}
	return withdrawal
}

func vanguardDynamic(ctx StrategyContext, p domain.VanguardDynamicParams) float64 {
	target := ctx.PortfolioValue * orDefault(p.AnnualWithdrawalRate, 0.05)
	// Bounds are relative to last year's spending, so year one collapses to
	// zero and the spending floor decides.
	prior := ctx.PreviousWithdrawal * (1 + ctx.InflationRate)
	ceiling := prior * (1 + orDefault(p.Ceiling, 0.05))
	floor := prior * (1 - orDefault(p.Floor, 0.025))
	return math.Min(math.Max(target, floor), ceiling)
}

func endowment(ctx StrategyContext, p domain.EndowmentParams) float64 {
	target := ctx.PortfolioValue * orDefault(p.SpendingRate, 0.05)
	weight := orDefault(p.SmoothingWeight, 0.70)
	prior := ctx.PreviousWithdrawal * (1 + ctx.InflationRate)
	return weight*prior + (1-weight)*target
}

func hebelerAutopilot(ctx StrategyContext, p domain.HebelerAutopilotParams) float64 {
	if ctx.Year == 1 {
		return ctx.InitialPortfolioValue * orDefault(p.InitialWithdrawalRate, 0.04)
	}
	weight := orDefault(p.PriorYearWeight, 0.75)
	pmtReal := PMT(orDefault(p.PMTExpectedReturn, 0.03), ctx.RemainingYears, ctx.PortfolioValue, 0)
	pmtNominal := AdjustForInflation(pmtReal, ctx.InflationRate, ctx.Year-1)
	prior := ctx.PreviousWithdrawal * (1 + ctx.InflationRate)
	return weight*prior + (1-weight)*pmtNominal
}

func capeBased(ctx StrategyContext, p domain.CAPEBasedParams) float64 {
	cape := ctx.CAPE
	if cape <= 0 {
		cape = p.StartingCAPE
	}
	if cape <= 0 {
		cape = 30
	}
	rate := orDefault(p.BaseWithdrawalRate, 0.015) + orDefault(p.CAPEWeight, 0.5)/cape
	return ctx.PortfolioValue * rate
}
