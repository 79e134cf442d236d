package domain

import (
	"github.com/rpgo/retirement-simulator/pkg/dateutil"
)

// MonthKey identifies a calendar month.
type MonthKey = dateutil.MonthKey

// SimulationMode selects single-path or Monte Carlo simulation.
type SimulationMode string

const (
	ModeManual     SimulationMode = "manual"
	ModeMonteCarlo SimulationMode = "monte-carlo"
)

// SimulationConfig is the validated, immutable input to the engine.
type SimulationConfig struct {
	Mode               SimulationMode           `yaml:"mode,omitempty" json:"mode,omitempty"`
	Calendar           Calendar                 `yaml:"calendar" json:"calendar"`
	Core               CoreParameters           `yaml:"core" json:"core"`
	Economics          Economics                `yaml:"economics" json:"economics"`
	Portfolio          Portfolio                `yaml:"portfolio" json:"portfolio"`
	Spending           SpendingPolicy           `yaml:"spending" json:"spending"`
	WithdrawalStrategy WithdrawalStrategyConfig `yaml:"withdrawal_strategy" json:"withdrawal_strategy"`
	DrawdownStrategy   DrawdownStrategyConfig   `yaml:"drawdown_strategy" json:"drawdown_strategy"`
	Cashflows          Cashflows                `yaml:"cashflows" json:"cashflows"`
	MonteCarlo         *MonteCarloSettings      `yaml:"monte_carlo,omitempty" json:"monte_carlo,omitempty"`
}

// Calendar is the simulated window.
type Calendar struct {
	StartMonth     MonthKey `yaml:"start_month" json:"start_month"`
	DurationMonths int      `yaml:"duration_months" json:"duration_months"`
}

// CoreParameters holds the retiree's age and the first withdrawal month.
type CoreParameters struct {
	StartingAgeYears int `yaml:"starting_age_years" json:"starting_age_years"`
	// WithdrawalsStartMonth is a 1-based month index.
	WithdrawalsStartMonth int `yaml:"withdrawals_start_month" json:"withdrawals_start_month"`
}

// Economics holds economy-wide assumptions.
type Economics struct {
	AnnualInflationRate Percent `yaml:"annual_inflation_rate" json:"annual_inflation_rate"`
}

// Portfolio is the starting balances plus return assumptions.
type Portfolio struct {
	StartingBalances AssetBalances     `yaml:"starting_balances" json:"starting_balances"`
	Assumptions      ReturnAssumptions `yaml:"assumptions" json:"assumptions"`
}

// ReturnAssumptions feed manual-mode return generation.
type ReturnAssumptions struct {
	AnnualExpectedReturn AssetWeights  `yaml:"annual_expected_return" json:"annual_expected_return"`
	AnnualVolatility     *AssetWeights `yaml:"annual_volatility,omitempty" json:"annual_volatility,omitempty"`
	// Seed makes generated manual-mode returns reproducible; nil draws a fresh seed.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// SpendingPolicy bounds the annual withdrawal, in today's money per month.
type SpendingPolicy struct {
	MonthlyMinSpend Money `yaml:"monthly_min_spend" json:"monthly_min_spend"`
	// MonthlyMaxSpend of zero leaves withdrawals uncapped.
	MonthlyMaxSpend Money `yaml:"monthly_max_spend" json:"monthly_max_spend"`
}

// Cashflows lists scheduled income and expense events.
type Cashflows struct {
	Incomes  []IncomeStream `yaml:"incomes" json:"incomes"`
	Expenses []ExpenseEvent `yaml:"expenses,omitempty" json:"expenses,omitempty"`
}

// CadenceKind controls how often an income stream fires.
type CadenceKind string

const (
	CadenceOneTime CadenceKind = "one_time"
	CadenceMonthly CadenceKind = "monthly"
	CadenceAnnual  CadenceKind = "annual"
	CadenceCustom  CadenceKind = "custom"
)

// Cadence is a firing rule; MonthOfYear applies to annual, EveryNMonths to custom.
type Cadence struct {
	Kind         CadenceKind `yaml:"kind" json:"kind"`
	MonthOfYear  int         `yaml:"month_of_year,omitempty" json:"month_of_year,omitempty"`
	EveryNMonths int         `yaml:"every_n_months,omitempty" json:"every_n_months,omitempty"`
}

// EscalationKind controls how a cashflow grows year over year.
type EscalationKind string

const (
	EscalationNone      EscalationKind = "none"
	EscalationCPILinked EscalationKind = "cpi_linked"
	EscalationFixedRate EscalationKind = "fixed_rate"
)

// Escalation is a growth rule; AnnualRate applies to fixed_rate.
type Escalation struct {
	Kind       EscalationKind `yaml:"kind" json:"kind"`
	AnnualRate Percent        `yaml:"annual_rate,omitempty" json:"annual_rate,omitempty"`
}

// IncomeStream deposits into one asset class on its cadence.
type IncomeStream struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name" json:"name"`
	Amount     Money      `yaml:"amount" json:"amount"`
	StartMonth MonthKey   `yaml:"start_month" json:"start_month"`
	EndMonth   *MonthKey  `yaml:"end_month,omitempty" json:"end_month,omitempty"`
	Cadence    Cadence    `yaml:"cadence" json:"cadence"`
	Escalation Escalation `yaml:"escalation" json:"escalation"`
	DepositTo  AssetClass `yaml:"deposit_to" json:"deposit_to"`
}

// ExpenseEvent is a forced withdrawal over a window of months.
type ExpenseEvent struct {
	ID             string     `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	Amount         Money      `yaml:"amount" json:"amount"`
	StartMonth     MonthKey   `yaml:"start_month" json:"start_month"`
	DurationMonths int        `yaml:"duration_months" json:"duration_months"`
	Escalation     Escalation `yaml:"escalation" json:"escalation"`
}

// HistoricalEra names a date range of the historical catalogue.
type HistoricalEra string

const (
	EraFullHistory HistoricalEra = "full-history"
	EraPostWar     HistoricalEra = "post-war"
	EraModern      HistoricalEra = "modern-era"
	EraStagflation HistoricalEra = "stagflation"
	EraLowYield    HistoricalEra = "low-yield"
	EraGFCRecovery HistoricalEra = "gfc-recovery"
	EraDotComCrash HistoricalEra = "dot-com-crash"
	EraLostDecade  HistoricalEra = "lost-decade"
)

// HistoricalEras lists every era in display order.
var HistoricalEras = []HistoricalEra{
	EraFullHistory, EraPostWar, EraModern, EraStagflation,
	EraLowYield, EraGFCRecovery, EraDotComCrash, EraLostDecade,
}

// MonteCarloSettings configures historical resampling.
type MonteCarloSettings struct {
	Iterations int           `yaml:"iterations" json:"iterations"`
	Era        HistoricalEra `yaml:"era" json:"era"`
	// Seed is optional; nil draws a fresh seed.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// HistoricalMonth is one realised month of returns. CAPE of zero means not supplied.
type HistoricalMonth struct {
	Year    int          `json:"year"`
	Month   int          `json:"month"`
	Returns AssetReturns `json:"returns"`
	CAPE    float64      `json:"cape,omitempty"`
}
