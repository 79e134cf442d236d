package output

import (
	"github.com/rpgo/retirement-simulator/internal/calculation"
	"github.com/rpgo/retirement-simulator/internal/domain"
)

// Analysis holds the headline figures every report leads with.
type Analysis struct {
	Kind              domain.ResultKind
	Months            int
	StartBalance      domain.Money
	EndBalance        domain.Money
	RealEndBalance    domain.Money
	TotalWithdrawn    domain.Money
	TotalShortfall    domain.Money
	TotalUnmetExpense domain.Money
	// DepletionMonth is the first month the tabulated path ends with nothing left.
	DepletionMonth *domain.MonthKey

	// Monte Carlo only.
	Iterations           int
	Era                  domain.HistoricalEra
	ProbabilityOfSuccess float64
	TerminalP10          domain.Money
	TerminalP50          domain.Money
	TerminalP90          domain.Money
}

// AnalyzeResult derives headline figures. Monte Carlo results are described
// by their median curve plus the terminal value distribution.
// Extracted from embedded console logic for testability.
func AnalyzeResult(res domain.SimulationResult) Analysis {
	rows := rowsOf(res)
	summary := res.Summary()
	a := Analysis{
		Kind:              res.Kind(),
		Months:            len(rows),
		EndBalance:        summary.EndOfHorizon.NominalEndBalance,
		RealEndBalance:    summary.EndOfHorizon.RealEndBalance,
		TotalWithdrawn:    summary.Withdrawals.TotalNominal,
		TotalShortfall:    summary.Withdrawals.TotalShortfall,
		TotalUnmetExpense: summary.TotalUnmetExpense,
	}
	if len(rows) > 0 {
		a.StartBalance = rows[0].StartBalances.Total()
	}
	for _, row := range rows {
		if row.EndBalances.Total() <= 0 {
			month := row.Month
			a.DepletionMonth = &month
			break
		}
	}

	if mc := res.MonteCarlo; mc != nil {
		a.Iterations = mc.Iterations
		a.Era = mc.Era
		a.ProbabilityOfSuccess = mc.ProbabilityOfSuccess
		terminal := calculation.MoneyFloats(mc.TerminalValues)
		a.TerminalP10 = calculation.RoundToCents(calculation.Percentile(terminal, 10))
		a.TerminalP50 = calculation.RoundToCents(calculation.Percentile(terminal, 50))
		a.TerminalP90 = calculation.RoundToCents(calculation.Percentile(terminal, 90))
	}
	return a
}

// YearSummary rolls twelve month rows into one line.
type YearSummary struct {
	Year         int
	StartMonth   domain.MonthKey
	StartBalance domain.Money
	EndBalance   domain.Money
	Withdrawn    domain.Money
	Income       domain.Money
	Expenses     domain.Money
	Shortfall    domain.Money
}

// SummarizeYears groups rows into simulated years; the last year may be partial.
func SummarizeYears(rows []domain.MonthRow) []YearSummary {
	var years []YearSummary
	for i, row := range rows {
		if i%12 == 0 {
			years = append(years, YearSummary{
				Year:         i/12 + 1,
				StartMonth:   row.Month,
				StartBalance: row.StartBalances.Total(),
			})
		}
		y := &years[len(years)-1]
		y.EndBalance = row.EndBalances.Total()
		y.Withdrawn += row.Withdrawals.NominalTotal
		y.Income += row.Cashflows.IncomeTotal
		y.Expenses += row.Cashflows.ExpenseTotal
		y.Shortfall += row.Withdrawals.Shortfall + row.Cashflows.UnmetExpense
	}
	return years
}
