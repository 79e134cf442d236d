package calculation

import (
	"fmt"
	"math"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// PathInput carries the market data for one simulated path.
type PathInput struct {
	// Returns holds one sample per simulated month.
	Returns []domain.AssetReturns
	// CAPE is optional; a zero entry means no ratio for that month.
	CAPE      []float64
	RequestID string
	Kind      domain.ResultKind
}

// Simulator runs single-path month-by-month projections.
type Simulator struct {
	logger Logger
}

// NewSimulator creates a path simulator.
func NewSimulator() *Simulator {
	return &Simulator{logger: NopLogger{}}
}

// SetLogger sets the logger used for diagnostics.
func (s *Simulator) SetLogger(l Logger) { s.logger = orNop(l) }

// SimulatePath projects cfg over its full horizon using the supplied returns.
// It never fails on depletion; shortfalls are recorded on the rows.
func (s *Simulator) SimulatePath(cfg *domain.SimulationConfig, in PathInput) (*domain.SinglePathResult, error) {
	plan, err := newPathPlan(cfg)
	if err != nil {
		return nil, err
	}
	if len(in.Returns) < plan.duration {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrInsufficientReturns, plan.duration, len(in.Returns))
	}
	kind := in.Kind
	if kind == "" {
		kind = domain.ResultManual
	}
	s.logger.Debugf("simulating %d months with %s strategy and %s drawdown",
		plan.duration, cfg.WithdrawalStrategy.Kind, cfg.DrawdownStrategy.Kind)

	rows, terminal := plan.run(in.Returns, in.CAPE, true)
	return &domain.SinglePathResult{
		Kind:        kind,
		RequestID:   in.RequestID,
		GeneratedAt: nowFunc().UTC(),
		Rows:        rows,
		Summary:     summarize(rows, terminal, plan.duration, plan.inflation),
	}, nil
}

// pathPlan is the per-config state shared by every path of a run.
type pathPlan struct {
	cfg       *domain.SimulationConfig
	duration  int
	inflation float64
	params    domain.StrategyParams
	allocator Allocator
}

func newPathPlan(cfg *domain.SimulationConfig) (*pathPlan, error) {
	if cfg == nil {
		return nil, fmt.Errorf("simulation config is nil")
	}
	params, err := ResolveStrategyParams(cfg.WithdrawalStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve withdrawal strategy: %w", err)
	}
	allocator, err := NewAllocator(cfg.DrawdownStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to build drawdown allocator: %w", err)
	}
	return &pathPlan{
		cfg:       cfg,
		duration:  max(cfg.Calendar.DurationMonths, 0),
		inflation: cfg.Economics.AnnualInflationRate,
		params:    params,
		allocator: allocator,
	}, nil
}

// run walks every month of the horizon. Per-event breakdowns are only kept
// when detail is set. It returns the rows and the terminal balance.
func (p *pathPlan) run(returns []domain.AssetReturns, capes []float64, detail bool) ([]domain.MonthRow, domain.Money) {
	cfg := p.cfg
	balances := cfg.Portfolio.StartingBalances
	initialValue := balances.Total().Float()
	rows := make([]domain.MonthRow, 0, p.duration)

	var annualWithdrawal float64
	previousYearReturn := cfg.Portfolio.Assumptions.AnnualExpectedReturn.Stocks

	for m := 0; m < p.duration; m++ {
		year := m/12 + 1
		startOfYear := m%12 == 0
		if startOfYear && m > 0 {
			previousYearReturn = compoundReturn(rows[m-12 : m])
		}

		month := cfg.Calendar.StartMonth.AddMonths(m)
		row := domain.MonthRow{Month: month, StartBalances: balances}
		startTotal := balances.Total().Float()

		var nominalChange float64
		r := returns[m]
		for _, asset := range domain.AssetClasses {
			bal := balances.Get(asset).Float()
			change := bal * r.Get(asset)
			nominalChange += change
			balances.Set(asset, RoundToCents(bal+change))
		}

		if detail {
			row.Cashflows.IncomeByID = map[string]domain.Money{}
		}
		for _, income := range cfg.Cashflows.Incomes {
			if !incomeFires(income, month) {
				continue
			}
			amount := RoundToCents(p.escalate(income.Amount, income.Escalation, year))
			balances.Add(income.DepositTo, amount)
			row.Cashflows.IncomeTotal += amount
			if detail {
				row.Cashflows.IncomeByID[income.ID] = amount
			}
		}

		if startOfYear {
			var cape float64
			if m < len(capes) {
				cape = capes[m]
			}
			gross := CalculateWithdrawal(StrategyContext{
				Year:                  year,
				PortfolioValue:        balances.Total().Float(),
				InitialPortfolioValue: initialValue,
				PreviousWithdrawal:    annualWithdrawal,
				PreviousYearReturn:    previousYearReturn,
				RemainingYears:        int(math.Ceil(float64(p.duration-m) / 12)),
				InflationRate:         p.inflation,
				CAPE:                  cape,
				Params:                p.params,
			})
			annualWithdrawal = p.clamp(gross, year)
		}

		if m+1 >= cfg.Core.WithdrawalsStartMonth {
			target := RoundToCents(annualWithdrawal / 12)
			res := p.allocator.Allocate(target, &balances, year)
			row.Withdrawals.ByAsset = res.Deductions
			row.Withdrawals.Shortfall = res.Shortfall
		}

		if detail {
			row.Cashflows.ExpenseByID = map[string]domain.Money{}
		}
		for _, expense := range cfg.Cashflows.Expenses {
			if !expenseFires(expense, month) {
				continue
			}
			amount := RoundToCents(p.escalate(expense.Amount, expense.Escalation, year))
			res := p.allocator.Allocate(amount, &balances, year)
			paid := amount - res.Shortfall
			row.Cashflows.ExpenseTotal += paid
			row.Cashflows.UnmetExpense += res.Shortfall
			if detail {
				row.Cashflows.ExpenseByID[expense.ID] = paid
			}
		}

		row.Withdrawals.NominalTotal = row.Withdrawals.ByAsset.Total()
		row.Withdrawals.RealTotal = RoundToCents(row.Withdrawals.NominalTotal.Float() / math.Pow(1+p.inflation, float64(year-1)))
		row.Movement.NominalChange = RoundToCents(nominalChange)
		if startTotal > 0 {
			row.Movement.PercentChange = nominalChange / startTotal
		}
		row.EndBalances = balances
		rows = append(rows, row)
	}
	return rows, balances.Total()
}

// clamp bounds the annual withdrawal to the inflation-adjusted spend floor and
// ceiling. A non-positive ceiling leaves the withdrawal uncapped.
func (p *pathPlan) clamp(annual float64, year int) float64 {
	factor := math.Pow(1+p.inflation, float64(year-1))
	spending := p.cfg.Spending
	annual = math.Max(annual, spending.MonthlyMinSpend.Annual().Float()*factor)
	if spending.MonthlyMaxSpend.IsPositive() {
		annual = math.Min(annual, spending.MonthlyMaxSpend.Annual().Float()*factor)
	}
	return annual
}

func (p *pathPlan) escalate(amount domain.Money, e domain.Escalation, year int) float64 {
	switch e.Kind {
	case domain.EscalationCPILinked:
		return AdjustForInflation(amount.Float(), p.inflation, year-1)
	case domain.EscalationFixedRate:
		return AdjustForInflation(amount.Float(), e.AnnualRate, year-1)
	}
	return amount.Float()
}

func compoundReturn(rows []domain.MonthRow) float64 {
	growth := 1.0
	for _, r := range rows {
		growth *= 1 + r.Movement.PercentChange
	}
	return growth - 1
}

func incomeFires(income domain.IncomeStream, month domain.MonthKey) bool {
	if month.Before(income.StartMonth) {
		return false
	}
	if income.EndMonth != nil && month.After(*income.EndMonth) {
		return false
	}
	diff := income.StartMonth.MonthsUntil(month)
	switch income.Cadence.Kind {
	case domain.CadenceOneTime:
		return diff == 0
	case domain.CadenceMonthly:
		return true
	case domain.CadenceAnnual:
		return month.Month == income.Cadence.MonthOfYear
	case domain.CadenceCustom:
		n := income.Cadence.EveryNMonths
		return n > 0 && diff%n == 0
	}
	return false
}

func expenseFires(expense domain.ExpenseEvent, month domain.MonthKey) bool {
	diff := expense.StartMonth.MonthsUntil(month)
	return diff >= 0 && diff < expense.DurationMonths
}

// summarize derives the path statistics. The real end balance deflates by
// whole years of inflation.
func summarize(rows []domain.MonthRow, terminal domain.Money, duration int, inflation float64) domain.SummaryStats {
	var s domain.SummaryStats
	s.EndOfHorizon.NominalEndBalance = terminal
	s.EndOfHorizon.RealEndBalance = RoundToCents(terminal.Float() / math.Pow(1+inflation, float64(duration/12)))

	nominals := make([]float64, len(rows))
	for i, r := range rows {
		nominals[i] = r.Withdrawals.NominalTotal.Float()
		s.Withdrawals.TotalNominal += r.Withdrawals.NominalTotal
		s.Withdrawals.TotalReal += r.Withdrawals.RealTotal
		s.Withdrawals.TotalShortfall += r.Withdrawals.Shortfall
		s.TotalUnmetExpense += r.Cashflows.UnmetExpense
	}
	s.Withdrawals.MeanMonthlyNominal = RoundToCents(Mean(nominals))
	s.Withdrawals.MedianMonthlyNominal = RoundToCents(Median(nominals))
	s.Withdrawals.StdDevMonthlyNominal = RoundToCents(StdDev(nominals))
	s.Withdrawals.P25MonthlyNominal = RoundToCents(Percentile(nominals, 25))
	s.Withdrawals.P75MonthlyNominal = RoundToCents(Percentile(nominals, 75))
	return s
}
