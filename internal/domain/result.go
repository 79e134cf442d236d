package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResultKind distinguishes the result shapes.
type ResultKind string

const (
	ResultManual        ResultKind = "manual"
	ResultDeterministic ResultKind = "deterministic"
	ResultMonteCarlo    ResultKind = "monte-carlo"
)

// MonthRow is the complete ledger for one simulated month.
type MonthRow struct {
	Month         MonthKey       `json:"month"`
	StartBalances AssetBalances  `json:"start_balances"`
	Movement      Movement       `json:"movement"`
	Cashflows     CashflowTotals `json:"cashflows"`
	Withdrawals   Withdrawals    `json:"withdrawals"`
	EndBalances   AssetBalances  `json:"end_balances"`
}

// Movement is the market-driven change for the month.
type Movement struct {
	NominalChange Money   `json:"nominal_change"`
	PercentChange Percent `json:"percent_change"`
}

// CashflowTotals records income and expense events that fired this month.
type CashflowTotals struct {
	IncomeTotal  Money            `json:"income_total"`
	ExpenseTotal Money            `json:"expense_total"`
	UnmetExpense Money            `json:"unmet_expense"`
	IncomeByID   map[string]Money `json:"income_by_id,omitempty"`
	ExpenseByID  map[string]Money `json:"expense_by_id,omitempty"`
}

// Withdrawals records the scheduled withdrawal for the month.
type Withdrawals struct {
	ByAsset      AssetBalances `json:"by_asset"`
	NominalTotal Money         `json:"nominal_total"`
	RealTotal    Money         `json:"real_total"`
	Shortfall    Money         `json:"shortfall"`
}

// SummaryStats are derived once per path.
type SummaryStats struct {
	EndOfHorizon      EndOfHorizon      `json:"end_of_horizon"`
	Withdrawals       WithdrawalSummary `json:"withdrawals"`
	TotalUnmetExpense Money             `json:"total_unmet_expense"`
}

// EndOfHorizon is the terminal balance in nominal and today's money.
type EndOfHorizon struct {
	NominalEndBalance Money `json:"nominal_end_balance"`
	RealEndBalance    Money `json:"real_end_balance"`
}

// WithdrawalSummary describes the distribution of monthly nominal withdrawals.
type WithdrawalSummary struct {
	TotalNominal         Money `json:"total_nominal"`
	TotalReal            Money `json:"total_real"`
	MeanMonthlyNominal   Money `json:"mean_monthly_nominal"`
	MedianMonthlyNominal Money `json:"median_monthly_nominal"`
	StdDevMonthlyNominal Money `json:"std_dev_monthly_nominal"`
	P25MonthlyNominal    Money `json:"p25_monthly_nominal"`
	P75MonthlyNominal    Money `json:"p75_monthly_nominal"`
	TotalShortfall       Money `json:"total_shortfall"`
}

// SinglePathResult is the output of one simulated path.
type SinglePathResult struct {
	Kind        ResultKind   `json:"kind"`
	RequestID   string       `json:"request_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Rows        []MonthRow   `json:"rows"`
	Summary     SummaryStats `json:"summary"`
}

// Percentiles reported by Monte Carlo runs.
var Percentiles = []int{5, 10, 25, 50, 75, 90, 95}

// PercentileCurves maps a percentile to its month-by-month curve. JSON keys
// are "p5", "p50" and so on.
type PercentileCurves map[int][]MonthRow

// MarshalJSON encodes the curves keyed "p<percentile>".
func (c PercentileCurves) MarshalJSON() ([]byte, error) {
	out := make(map[string][]MonthRow, len(c))
	for p, rows := range c {
		out["p"+strconv.Itoa(p)] = rows
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes curves keyed "p<percentile>".
func (c *PercentileCurves) UnmarshalJSON(b []byte) error {
	var raw map[string][]MonthRow
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	curves := make(PercentileCurves, len(raw))
	for key, rows := range raw {
		p, err := strconv.Atoi(strings.TrimPrefix(key, "p"))
		if err != nil {
			return fmt.Errorf("invalid percentile key %q", key)
		}
		curves[p] = rows
	}
	*c = curves
	return nil
}

// MonteCarloResult aggregates many resampled paths.
type MonteCarloResult struct {
	Kind                 ResultKind       `json:"kind"`
	RequestID            string           `json:"request_id"`
	GeneratedAt          time.Time        `json:"generated_at"`
	Era                  HistoricalEra    `json:"era"`
	Seed                 int64            `json:"seed"`
	Iterations           int              `json:"iterations"`
	ProbabilityOfSuccess float64          `json:"probability_of_success"`
	Percentiles          PercentileCurves `json:"percentiles"`
	TerminalValues       []Money          `json:"terminal_values"`
	Summary              SummaryStats     `json:"summary"`
}

// Curve returns the MonthRow sequence for percentile p, or nil.
func (r *MonteCarloResult) Curve(p int) []MonthRow {
	if r == nil {
		return nil
	}
	return r.Percentiles[p]
}

// SimulationResult holds exactly one of the two result shapes.
type SimulationResult struct {
	SinglePath *SinglePathResult
	MonteCarlo *MonteCarloResult
}

// Kind reports which shape is populated.
func (r SimulationResult) Kind() ResultKind {
	if r.MonteCarlo != nil {
		return r.MonteCarlo.Kind
	}
	if r.SinglePath != nil {
		return r.SinglePath.Kind
	}
	return ""
}

// RequestID returns the request identifier of the populated shape.
func (r SimulationResult) RequestID() string {
	if r.MonteCarlo != nil {
		return r.MonteCarlo.RequestID
	}
	if r.SinglePath != nil {
		return r.SinglePath.RequestID
	}
	return ""
}

// Summary returns the summary statistics of the populated shape.
func (r SimulationResult) Summary() SummaryStats {
	if r.MonteCarlo != nil {
		return r.MonteCarlo.Summary
	}
	if r.SinglePath != nil {
		return r.SinglePath.Summary
	}
	return SummaryStats{}
}

// MarshalJSON encodes whichever shape is populated.
func (r SimulationResult) MarshalJSON() ([]byte, error) {
	if r.MonteCarlo != nil {
		return json.Marshal(r.MonteCarlo)
	}
	return json.Marshal(r.SinglePath)
}
