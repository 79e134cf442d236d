package calculation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgo/retirement-simulator/internal/domain"
	"github.com/rpgo/retirement-simulator/pkg/dateutil"
)

// baseConfig is a two-year, $1M all-stock plan under the 4% rule.
func baseConfig() *domain.SimulationConfig {
	return &domain.SimulationConfig{
		Mode:     domain.ModeManual,
		Calendar: domain.Calendar{StartMonth: dateutil.MustParseMonthKey("2026-01"), DurationMonths: 24},
		Core:     domain.CoreParameters{StartingAgeYears: 60, WithdrawalsStartMonth: 1},
		Economics: domain.Economics{
			AnnualInflationRate: 0.03,
		},
		Portfolio: domain.Portfolio{
			StartingBalances: domain.AssetBalances{Stocks: 100_000_000},
		},
		WithdrawalStrategy: domain.NewWithdrawalStrategy(domain.ConstantDollarParams{InitialWithdrawalRate: 0.04}),
		DrawdownStrategy: domain.NewDrawdownStrategy(domain.BucketParams{
			Order: []domain.AssetClass{domain.Stocks, domain.Bonds, domain.Cash},
		}),
	}
}

func zeroReturns(months int) []domain.AssetReturns {
	return ConstantReturns(domain.AssetReturns{}, months)
}

func simulate(t *testing.T, cfg *domain.SimulationConfig, returns []domain.AssetReturns) *domain.SinglePathResult {
	t.Helper()
	res, err := NewSimulator().SimulatePath(cfg, PathInput{Returns: returns})
	require.NoError(t, err)
	return res
}

func TestSimulatePathConstantDollar(t *testing.T) {
	res := simulate(t, baseConfig(), zeroReturns(24))

	require.Len(t, res.Rows, 24)
	assert.EqualValues(t, 333_333, res.Rows[0].Withdrawals.NominalTotal)
	assert.EqualValues(t, 333_333, res.Rows[11].Withdrawals.NominalTotal)
	assert.EqualValues(t, 343_333, res.Rows[12].Withdrawals.NominalTotal)

	// Year two is deflated by one year of inflation.
	assert.EqualValues(t, RoundToCents(343_333/1.03), res.Rows[12].Withdrawals.RealTotal)
	assert.Equal(t, res.Rows[0].Withdrawals.NominalTotal, res.Rows[0].Withdrawals.RealTotal)

	assert.Equal(t, "2026-01", res.Rows[0].Month.String())
	assert.Equal(t, "2027-12", res.Rows[23].Month.String())

	end := domain.Money(100_000_000 - 12*333_333 - 12*343_333)
	assert.Equal(t, end, res.Rows[23].EndBalances.Total())
	assert.Equal(t, end, res.Summary.EndOfHorizon.NominalEndBalance)
	assert.Equal(t, RoundToCents(end.Float()/math.Pow(1.03, 2)), res.Summary.EndOfHorizon.RealEndBalance)
	assert.EqualValues(t, 12*333_333+12*343_333, res.Summary.Withdrawals.TotalNominal)
	assert.EqualValues(t, (333_333+343_333)/2, res.Summary.Withdrawals.MedianMonthlyNominal)
	assert.EqualValues(t, 333_333, res.Summary.Withdrawals.P25MonthlyNominal)
	assert.EqualValues(t, 343_333, res.Summary.Withdrawals.P75MonthlyNominal)
	assert.EqualValues(t, 5_000, res.Summary.Withdrawals.StdDevMonthlyNominal)
}

func TestSimulatePathRowContinuity(t *testing.T) {
	cfg := baseConfig()
	cfg.Portfolio.StartingBalances = domain.AssetBalances{Stocks: 60_000_000, Bonds: 30_000_000, Cash: 10_000_000}
	returns := NewReturnGenerator(99).Generate(domain.ReturnAssumptions{}, 24)

	res := simulate(t, cfg, returns)
	for m := 1; m < len(res.Rows); m++ {
		assert.Equal(t, res.Rows[m-1].EndBalances, res.Rows[m].StartBalances, "month %d", m)
	}
	for _, row := range res.Rows {
		start := row.StartBalances.Total()
		change := row.EndBalances.Total() - start + row.Withdrawals.NominalTotal
		assert.InDelta(t, row.Movement.NominalChange.Float(), change.Float(), 3)
		assert.InDelta(t, row.Movement.NominalChange.Float()/start.Float(), row.Movement.PercentChange, 1e-6)
	}
}

func TestSimulatePathZeroDuration(t *testing.T) {
	cfg := baseConfig()
	cfg.Calendar.DurationMonths = 0

	res := simulate(t, cfg, nil)
	assert.Empty(t, res.Rows)
	assert.EqualValues(t, 100_000_000, res.Summary.EndOfHorizon.NominalEndBalance)
	assert.Equal(t, domain.WithdrawalSummary{}, res.Summary.Withdrawals)
}

func TestSimulatePathInsufficientReturns(t *testing.T) {
	_, err := NewSimulator().SimulatePath(baseConfig(), PathInput{Returns: zeroReturns(23)})
	assert.ErrorIs(t, err, ErrInsufficientReturns)
}

func TestSimulatePathDepletionContinues(t *testing.T) {
	cfg := baseConfig()
	cfg.Portfolio.StartingBalances = domain.AssetBalances{Stocks: 100, Bonds: 100, Cash: 100}
	cfg.WithdrawalStrategy = domain.NewWithdrawalStrategy(domain.PercentOfPortfolioParams{AnnualRate: 0.04})
	cfg.Spending.MonthlyMinSpend = 500

	res := simulate(t, cfg, zeroReturns(24))
	require.Len(t, res.Rows, 24)

	first := res.Rows[0]
	assert.EqualValues(t, 300, first.Withdrawals.NominalTotal)
	assert.EqualValues(t, 200, first.Withdrawals.Shortfall)
	assert.Equal(t, domain.AssetBalances{}, first.EndBalances)

	last := res.Rows[23]
	assert.Equal(t, domain.AssetBalances{}, last.EndBalances)
	assert.Zero(t, last.Movement.PercentChange)
	assert.Positive(t, res.Summary.Withdrawals.TotalShortfall)
	assert.Zero(t, res.Summary.EndOfHorizon.NominalEndBalance)
}

func TestSimulatePathSpendingClamp(t *testing.T) {
	cfg := baseConfig()
	cfg.Spending = domain.SpendingPolicy{MonthlyMinSpend: 100_000, MonthlyMaxSpend: 200_000}

	res := simulate(t, cfg, zeroReturns(24))
	// 4% would be 333,333 a month; the ceiling holds it at 200,000, inflated in year two.
	assert.EqualValues(t, 200_000, res.Rows[0].Withdrawals.NominalTotal)
	assert.EqualValues(t, 206_000, res.Rows[12].Withdrawals.NominalTotal)

	cfg.Spending = domain.SpendingPolicy{MonthlyMinSpend: 500_000}
	res = simulate(t, cfg, zeroReturns(24))
	assert.EqualValues(t, 500_000, res.Rows[0].Withdrawals.NominalTotal)
	assert.EqualValues(t, 515_000, res.Rows[12].Withdrawals.NominalTotal)
}

func TestSimulatePathVanguardDynamicStartsAtFloor(t *testing.T) {
	cfg := baseConfig()
	cfg.WithdrawalStrategy = domain.NewWithdrawalStrategy(domain.VanguardDynamicParams{})
	cfg.Spending = domain.SpendingPolicy{MonthlyMinSpend: 250_000}

	res := simulate(t, cfg, zeroReturns(24))
	// Year one has no prior spending, so the corridor is empty and the floor applies.
	assert.EqualValues(t, 250_000, res.Rows[0].Withdrawals.NominalTotal)
	// Year two may rise at most 5% over last year's inflated spending.
	assert.EqualValues(t, 270_375, res.Rows[12].Withdrawals.NominalTotal)
}

func TestSimulatePathWithdrawalsStartMonth(t *testing.T) {
	cfg := baseConfig()
	cfg.Core.WithdrawalsStartMonth = 4

	res := simulate(t, cfg, zeroReturns(24))
	for m := 0; m < 3; m++ {
		assert.Zero(t, res.Rows[m].Withdrawals.NominalTotal, "month %d", m)
	}
	assert.EqualValues(t, 333_333, res.Rows[3].Withdrawals.NominalTotal)
}

func TestSimulatePathIncomeCadence(t *testing.T) {
	start := dateutil.MustParseMonthKey("2026-01")
	end := dateutil.MustParseMonthKey("2026-06")
	cfg := baseConfig()
	cfg.Portfolio.StartingBalances = domain.AssetBalances{}
	cfg.WithdrawalStrategy = domain.NewWithdrawalStrategy(domain.PercentOfPortfolioParams{})
	cfg.Cashflows.Incomes = []domain.IncomeStream{
		{
			ID: "bonus", Amount: 1_000, StartMonth: start.AddMonths(2),
			Cadence: domain.Cadence{Kind: domain.CadenceOneTime}, DepositTo: domain.Cash,
		},
		{
			ID: "pension", Amount: 100, StartMonth: start, EndMonth: &end,
			Cadence: domain.Cadence{Kind: domain.CadenceMonthly}, DepositTo: domain.Bonds,
		},
		{
			ID: "dividend", Amount: 50, StartMonth: start,
			Cadence:    domain.Cadence{Kind: domain.CadenceAnnual, MonthOfYear: 7},
			Escalation: domain.Escalation{Kind: domain.EscalationFixedRate, AnnualRate: 0.10},
			DepositTo:  domain.Stocks,
		},
		{
			ID: "rent", Amount: 10, StartMonth: start.AddMonths(1),
			Cadence:    domain.Cadence{Kind: domain.CadenceCustom, EveryNMonths: 3},
			Escalation: domain.Escalation{Kind: domain.EscalationCPILinked},
			DepositTo:  domain.Cash,
		},
	}

	res := simulate(t, cfg, zeroReturns(24))
	fired := func(id string) []int {
		var months []int
		for m, row := range res.Rows {
			if _, ok := row.Cashflows.IncomeByID[id]; ok {
				months = append(months, m)
			}
		}
		return months
	}

	assert.Equal(t, []int{2}, fired("bonus"))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, fired("pension"))
	assert.Equal(t, []int{6, 18}, fired("dividend"))
	assert.Equal(t, []int{1, 4, 7, 10, 13, 16, 19, 22}, fired("rent"))

	assert.EqualValues(t, 50, res.Rows[6].Cashflows.IncomeByID["dividend"])
	assert.EqualValues(t, 55, res.Rows[18].Cashflows.IncomeByID["dividend"])
	assert.EqualValues(t, 10, res.Rows[10].Cashflows.IncomeByID["rent"])
	assert.EqualValues(t, 10, res.Rows[13].Cashflows.IncomeByID["rent"]) // 10.3 rounds down
	assert.EqualValues(t, 1_000+100, res.Rows[2].Cashflows.IncomeTotal)
	assert.EqualValues(t, 1_000+10, res.Rows[2].EndBalances.Cash)
}

func TestSimulatePathExpenses(t *testing.T) {
	cfg := baseConfig()
	cfg.Portfolio.StartingBalances = domain.AssetBalances{Cash: 1_000}
	cfg.Core.WithdrawalsStartMonth = 100
	cfg.Cashflows.Expenses = []domain.ExpenseEvent{
		{ID: "roof", Amount: 400, StartMonth: dateutil.MustParseMonthKey("2026-03"), DurationMonths: 3},
	}

	res := simulate(t, cfg, zeroReturns(24))
	var paid []domain.Money
	for _, row := range res.Rows[:7] {
		paid = append(paid, row.Cashflows.ExpenseTotal)
	}
	assert.Equal(t, []domain.Money{0, 0, 400, 400, 200, 0, 0}, paid)
	assert.EqualValues(t, 200, res.Rows[4].Cashflows.UnmetExpense)
	assert.EqualValues(t, 200, res.Summary.TotalUnmetExpense)
	assert.Zero(t, res.Rows[4].Withdrawals.NominalTotal)
}

func TestSimulatePathPreviousYearReturn(t *testing.T) {
	cfg := baseConfig()
	cfg.Calendar.DurationMonths = 24
	cfg.WithdrawalStrategy = domain.NewWithdrawalStrategy(domain.SensibleWithdrawalsParams{})
	cfg.Economics.AnnualInflationRate = 0

	// 1% a month in year one; the year-two draw includes the extras term.
	returns := append(ConstantReturns(domain.AssetReturns{Stocks: 0.01}, 12), zeroReturns(12)...)
	res := simulate(t, cfg, returns)

	yearTwo := res.Rows[12]
	pv := yearTwo.StartBalances.Total().Float()
	prior := 1.0
	for _, row := range res.Rows[:12] {
		prior *= 1 + row.Movement.PercentChange
	}
	want := pv*0.03 + pv*(prior-1)*0.10
	assert.InDelta(t, want/12, yearTwo.Withdrawals.NominalTotal.Float(), 1)
}

func TestSimulatePathRebalancingGlidePath(t *testing.T) {
	cfg := baseConfig()
	cfg.Portfolio.StartingBalances = domain.AssetBalances{Stocks: 50_000_000, Bonds: 50_000_000}
	cfg.DrawdownStrategy = domain.NewDrawdownStrategy(domain.RebalancingParams{
		TargetAllocation: domain.AssetWeights{Stocks: 0.5, Bonds: 0.5},
		GlidePathEnabled: true,
		GlidePath: []domain.GlidePathWaypoint{
			{Year: 1, Allocation: domain.AssetWeights{Stocks: 1}},
		},
	})

	res := simulate(t, cfg, zeroReturns(24))
	// Bonds are entirely overweight against an all-stock target.
	assert.EqualValues(t, 333_333, res.Rows[0].Withdrawals.ByAsset.Bonds)
	assert.Zero(t, res.Rows[0].Withdrawals.ByAsset.Stocks)
}

func TestSimulatePathRebalancingOnTargetDrawsByWeight(t *testing.T) {
	cfg := baseConfig()
	cfg.Portfolio.StartingBalances = domain.AssetBalances{Stocks: 60_000_000, Bonds: 30_000_000, Cash: 10_000_000}
	cfg.DrawdownStrategy = domain.NewDrawdownStrategy(domain.RebalancingParams{
		TargetAllocation: domain.AssetWeights{Stocks: 0.6, Bonds: 0.3, Cash: 0.1},
	})

	res := simulate(t, cfg, zeroReturns(24))
	// 333,333 cents split 60/30/10; the two leftover cents go to the largest remainders.
	assert.Equal(t, domain.AssetBalances{Stocks: 200_000, Bonds: 100_000, Cash: 33_333}, res.Rows[0].Withdrawals.ByAsset)
}

func TestSimulatePathStampsMetadata(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	SetNowFunc(func() time.Time { return fixed })
	t.Cleanup(func() { SetNowFunc(time.Now) })

	res, err := NewSimulator().SimulatePath(baseConfig(), PathInput{
		Returns:   zeroReturns(24),
		RequestID: "req-1",
		Kind:      domain.ResultDeterministic,
	})
	require.NoError(t, err)
	assert.Equal(t, fixed, res.GeneratedAt)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, domain.ResultDeterministic, res.Kind)
}
