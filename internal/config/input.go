package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rpgo/retirement-simulator/internal/calculation"
	"github.com/rpgo/retirement-simulator/internal/domain"
	"github.com/rpgo/retirement-simulator/pkg/dateutil"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid simulation configuration")

// Limits enforced on simulation requests.
const (
	MaxDurationMonths   = 1200
	MaxIterations       = 100_000
	MaxStartingAgeYears = 120
)

// InputParser handles parsing of input configuration files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads configuration from a YAML or JSON file
func (ip *InputParser) LoadFromFile(filename string) (*domain.SimulationConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.LoadFromBytes(data)
}

// LoadFromBytes parses and validates a YAML (or JSON) document.
func (ip *InputParser) LoadFromBytes(data []byte) (*domain.SimulationConfig, error) {
	var config domain.SimulationConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidConfig, err)
	}

	if err := ip.ValidateConfiguration(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// ValidateConfiguration validates the entire configuration. The returned
// error wraps ErrInvalidConfig; a monte-carlo request without settings also
// wraps calculation.ErrMissingMonteCarlo.
func (ip *InputParser) ValidateConfiguration(config *domain.SimulationConfig) error {
	if config == nil {
		return fmt.Errorf("%w: configuration is empty", ErrInvalidConfig)
	}

	checks := []func(*domain.SimulationConfig) error{
		ip.validateMode,
		ip.validateCalendar,
		ip.validateCore,
		ip.validateEconomics,
		ip.validatePortfolio,
		ip.validateSpending,
		ip.validateWithdrawalStrategy,
		ip.validateDrawdownStrategy,
		ip.validateCashflows,
	}
	for _, check := range checks {
		if err := check(config); err != nil {
			if errors.Is(err, calculation.ErrMissingMonteCarlo) {
				return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (ip *InputParser) validateMode(config *domain.SimulationConfig) error {
	switch config.Mode {
	case "", domain.ModeManual:
	case domain.ModeMonteCarlo:
		if config.MonteCarlo == nil {
			return calculation.ErrMissingMonteCarlo
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", domain.ModeManual, domain.ModeMonteCarlo, config.Mode)
	}

	if mc := config.MonteCarlo; mc != nil {
		if mc.Iterations < 1 || mc.Iterations > MaxIterations {
			return fmt.Errorf("monte_carlo.iterations must be between 1 and %d", MaxIterations)
		}
		if cells := mc.Iterations * config.Calendar.DurationMonths; cells > calculation.MaxPathCells {
			return fmt.Errorf("monte_carlo.iterations times calendar.duration_months must not exceed %d, got %d",
				calculation.MaxPathCells, cells)
		}
		if !slices.Contains(domain.HistoricalEras, mc.Era) {
			return fmt.Errorf("monte_carlo.era %q is not a known historical era", mc.Era)
		}
	}
	return nil
}

func (ip *InputParser) validateCalendar(config *domain.SimulationConfig) error {
	if config.Calendar.StartMonth.IsZero() {
		return fmt.Errorf("calendar.start_month is required")
	}
	if d := config.Calendar.DurationMonths; d < 0 || d > MaxDurationMonths {
		return fmt.Errorf("calendar.duration_months must be between 0 and %d", MaxDurationMonths)
	}
	return nil
}

func (ip *InputParser) validateCore(config *domain.SimulationConfig) error {
	if a := config.Core.StartingAgeYears; a < 0 || a > MaxStartingAgeYears {
		return fmt.Errorf("core.starting_age_years must be between 0 and %d", MaxStartingAgeYears)
	}
	if config.Core.WithdrawalsStartMonth < 1 {
		return fmt.Errorf("core.withdrawals_start_month must be at least 1")
	}
	return nil
}

func (ip *InputParser) validateEconomics(config *domain.SimulationConfig) error {
	if r := config.Economics.AnnualInflationRate; r < -0.10 || r > 0.50 {
		return fmt.Errorf("economics.annual_inflation_rate must be between -10%% and 50%%")
	}
	return nil
}

func (ip *InputParser) validatePortfolio(config *domain.SimulationConfig) error {
	for _, asset := range domain.AssetClasses {
		if config.Portfolio.StartingBalances.Get(asset).IsNegative() {
			return fmt.Errorf("portfolio.starting_balances.%s cannot be negative", asset)
		}
	}
	assumptions := config.Portfolio.Assumptions
	for _, asset := range domain.AssetClasses {
		if assumptions.AnnualExpectedReturn.Get(asset) <= -1 {
			return fmt.Errorf("portfolio.assumptions.annual_expected_return.%s must be greater than -100%%", asset)
		}
		if assumptions.AnnualVolatility != nil && assumptions.AnnualVolatility.Get(asset) < 0 {
			return fmt.Errorf("portfolio.assumptions.annual_volatility.%s cannot be negative", asset)
		}
	}
	return nil
}

func (ip *InputParser) validateSpending(config *domain.SimulationConfig) error {
	s := config.Spending
	if s.MonthlyMinSpend.IsNegative() {
		return fmt.Errorf("spending.monthly_min_spend cannot be negative")
	}
	if s.MonthlyMaxSpend.IsNegative() {
		return fmt.Errorf("spending.monthly_max_spend cannot be negative")
	}
	if s.MonthlyMaxSpend > 0 && s.MonthlyMaxSpend < s.MonthlyMinSpend {
		return fmt.Errorf("spending.monthly_max_spend cannot be below monthly_min_spend")
	}
	return nil
}

func (ip *InputParser) validateWithdrawalStrategy(config *domain.SimulationConfig) error {
	params, err := calculation.ResolveStrategyParams(config.WithdrawalStrategy)
	if err != nil {
		return fmt.Errorf("withdrawal_strategy: %w", err)
	}

	switch p := params.(type) {
	case domain.OneOverNParams:
		if p.Years < 0 {
			return fmt.Errorf("withdrawal_strategy.params.years cannot be negative")
		}
	case domain.GuytonKlingerParams:
		if p.GuardrailsSunset < 0 {
			return fmt.Errorf("withdrawal_strategy.params.guardrails_sunset cannot be negative")
		}
	case domain.VanguardDynamicParams:
		if p.Ceiling < 0 || p.Floor < 0 {
			return fmt.Errorf("withdrawal_strategy.params ceiling and floor cannot be negative")
		}
	case domain.EndowmentParams:
		if p.SmoothingWeight < 0 || p.SmoothingWeight > 1 {
			return fmt.Errorf("withdrawal_strategy.params.smoothing_weight must be between 0 and 1")
		}
	case domain.HebelerAutopilotParams:
		if p.PriorYearWeight < 0 || p.PriorYearWeight > 1 {
			return fmt.Errorf("withdrawal_strategy.params.prior_year_weight must be between 0 and 1")
		}
	case domain.CAPEBasedParams:
		if p.StartingCAPE < 0 {
			return fmt.Errorf("withdrawal_strategy.params.starting_cape cannot be negative")
		}
	}
	return nil
}

func (ip *InputParser) validateDrawdownStrategy(config *domain.SimulationConfig) error {
	ds := config.DrawdownStrategy
	switch p := ds.Params.(type) {
	case domain.BucketParams:
		if ds.Kind != domain.Bucket {
			return fmt.Errorf("drawdown_strategy %q has bucket params", ds.Kind)
		}
		if len(p.Order) == 0 {
			return fmt.Errorf("drawdown_strategy.params.order must list at least one asset class")
		}
		seen := map[domain.AssetClass]bool{}
		for _, asset := range p.Order {
			if !asset.Valid() {
				return fmt.Errorf("drawdown_strategy.params.order: unknown asset class %q", asset)
			}
			if seen[asset] {
				return fmt.Errorf("drawdown_strategy.params.order lists %q twice", asset)
			}
			seen[asset] = true
		}
	case domain.RebalancingParams:
		if ds.Kind != domain.Rebalancing {
			return fmt.Errorf("drawdown_strategy %q has rebalancing params", ds.Kind)
		}
		if err := validateWeights("drawdown_strategy.params.target_allocation", p.TargetAllocation); err != nil {
			return err
		}
		for i, wp := range p.GlidePath {
			if wp.Year < 1 {
				return fmt.Errorf("drawdown_strategy.params.glide_path[%d].year must be at least 1", i)
			}
			if err := validateWeights(fmt.Sprintf("drawdown_strategy.params.glide_path[%d].allocation", i), wp.Allocation); err != nil {
				return err
			}
		}
	case nil:
		switch ds.Kind {
		case domain.Bucket:
		case domain.Rebalancing:
			return fmt.Errorf("drawdown_strategy.params.target_allocation is required for rebalancing")
		default:
			return fmt.Errorf("drawdown_strategy: unknown kind %q", ds.Kind)
		}
	}
	return nil
}

func validateWeights(path string, w domain.AssetWeights) error {
	for _, asset := range domain.AssetClasses {
		if v := w.Get(asset); v < 0 || v > 1 {
			return fmt.Errorf("%s.%s must be between 0 and 1", path, asset)
		}
	}
	return nil
}

func (ip *InputParser) validateCashflows(config *domain.SimulationConfig) error {
	ids := map[string]bool{}
	for i := range config.Cashflows.Incomes {
		if err := ip.validateIncome(&config.Cashflows.Incomes[i]); err != nil {
			return fmt.Errorf("cashflows.incomes[%d]: %w", i, err)
		}
		id := config.Cashflows.Incomes[i].ID
		if ids[id] {
			return fmt.Errorf("cashflows.incomes[%d]: duplicate id %q", i, id)
		}
		ids[id] = true
	}

	ids = map[string]bool{}
	for i := range config.Cashflows.Expenses {
		if err := ip.validateExpense(&config.Cashflows.Expenses[i]); err != nil {
			return fmt.Errorf("cashflows.expenses[%d]: %w", i, err)
		}
		id := config.Cashflows.Expenses[i].ID
		if ids[id] {
			return fmt.Errorf("cashflows.expenses[%d]: duplicate id %q", i, id)
		}
		ids[id] = true
	}
	return nil
}

// validateIncome validates a single income stream
func (ip *InputParser) validateIncome(income *domain.IncomeStream) error {
	if income.ID == "" {
		return fmt.Errorf("id is required")
	}
	if income.Amount.IsNegative() {
		return fmt.Errorf("amount cannot be negative")
	}
	if income.StartMonth.IsZero() {
		return fmt.Errorf("start_month is required")
	}
	if income.EndMonth != nil && income.EndMonth.Before(income.StartMonth) {
		return fmt.Errorf("end_month %s is before start_month %s", income.EndMonth, income.StartMonth)
	}
	if !income.DepositTo.Valid() {
		return fmt.Errorf("deposit_to: unknown asset class %q", income.DepositTo)
	}

	switch income.Cadence.Kind {
	case domain.CadenceOneTime, domain.CadenceMonthly:
	case domain.CadenceAnnual:
		if m := income.Cadence.MonthOfYear; m < 1 || m > 12 {
			return fmt.Errorf("cadence.month_of_year must be between 1 and 12")
		}
	case domain.CadenceCustom:
		if income.Cadence.EveryNMonths < 1 {
			return fmt.Errorf("cadence.every_n_months must be at least 1")
		}
	default:
		return fmt.Errorf("cadence.kind %q is not supported", income.Cadence.Kind)
	}

	return validateEscalation(income.Escalation)
}

// validateExpense validates a single expense event
func (ip *InputParser) validateExpense(expense *domain.ExpenseEvent) error {
	if expense.ID == "" {
		return fmt.Errorf("id is required")
	}
	if expense.Amount.IsNegative() {
		return fmt.Errorf("amount cannot be negative")
	}
	if expense.StartMonth.IsZero() {
		return fmt.Errorf("start_month is required")
	}
	if expense.DurationMonths < 1 {
		return fmt.Errorf("duration_months must be at least 1")
	}
	return validateEscalation(expense.Escalation)
}

func validateEscalation(e domain.Escalation) error {
	switch e.Kind {
	case "", domain.EscalationNone, domain.EscalationCPILinked:
		return nil
	case domain.EscalationFixedRate:
		if e.AnnualRate <= -1 {
			return fmt.Errorf("escalation.annual_rate must be greater than -100%%")
		}
		return nil
	}
	return fmt.Errorf("escalation.kind %q is not supported", e.Kind)
}

// CreateExampleConfiguration creates an example configuration file
func (ip *InputParser) CreateExampleConfiguration() *domain.SimulationConfig {
	start := dateutil.NewMonthKey(2026, 1)
	pensionEnd := start.AddMonths(30*12 - 1)
	seed := int64(20260101)

	return &domain.SimulationConfig{
		Mode: domain.ModeManual,
		Calendar: domain.Calendar{
			StartMonth:     start,
			DurationMonths: 30 * 12,
		},
		Core: domain.CoreParameters{
			StartingAgeYears:      65,
			WithdrawalsStartMonth: 1,
		},
		Economics: domain.Economics{AnnualInflationRate: 0.025},
		Portfolio: domain.Portfolio{
			StartingBalances: domain.AssetBalances{
				Stocks: 60_000_000,
				Bonds:  30_000_000,
				Cash:   10_000_000,
			},
			Assumptions: domain.ReturnAssumptions{
				AnnualExpectedReturn: domain.AssetWeights{Stocks: 0.07, Bonds: 0.035, Cash: 0.02},
				AnnualVolatility:     &domain.AssetWeights{Stocks: 0.17, Bonds: 0.06, Cash: 0.01},
				Seed:                 &seed,
			},
		},
		Spending: domain.SpendingPolicy{
			MonthlyMinSpend: 250_000,
			MonthlyMaxSpend: 600_000,
		},
		WithdrawalStrategy: domain.NewWithdrawalStrategy(domain.GuytonKlingerParams{
			InitialWithdrawalRate:      0.05,
			CapitalPreservationTrigger: 0.20,
			CapitalPreservationCut:     0.10,
			ProsperityTrigger:          0.20,
			ProsperityRaise:            0.10,
			GuardrailsSunset:           15,
		}),
		DrawdownStrategy: domain.NewDrawdownStrategy(domain.RebalancingParams{
			TargetAllocation: domain.AssetWeights{Stocks: 0.6, Bonds: 0.3, Cash: 0.1},
			GlidePathEnabled: true,
			GlidePath: []domain.GlidePathWaypoint{
				{Year: 1, Allocation: domain.AssetWeights{Stocks: 0.6, Bonds: 0.3, Cash: 0.1}},
				{Year: 20, Allocation: domain.AssetWeights{Stocks: 0.4, Bonds: 0.45, Cash: 0.15}},
			},
		}),
		Cashflows: domain.Cashflows{
			Incomes: []domain.IncomeStream{
				{
					ID:         "pension",
					Name:       "Pension",
					Amount:     150_000,
					StartMonth: start,
					EndMonth:   &pensionEnd,
					Cadence:    domain.Cadence{Kind: domain.CadenceMonthly},
					Escalation: domain.Escalation{Kind: domain.EscalationCPILinked},
					DepositTo:  domain.Cash,
				},
				{
					ID:         "social-security",
					Name:       "Social Security",
					Amount:     280_000,
					StartMonth: start.AddMonths(24),
					Cadence:    domain.Cadence{Kind: domain.CadenceMonthly},
					Escalation: domain.Escalation{Kind: domain.EscalationCPILinked},
					DepositTo:  domain.Cash,
				},
			},
			Expenses: []domain.ExpenseEvent{
				{
					ID:             "roof",
					Name:           "Roof replacement",
					Amount:         2_500_000,
					StartMonth:     start.AddMonths(60),
					DurationMonths: 1,
					Escalation:     domain.Escalation{Kind: domain.EscalationCPILinked},
				},
				{
					ID:             "long-term-care",
					Name:           "Long-term care",
					Amount:         400_000,
					StartMonth:     start.AddMonths(25 * 12),
					DurationMonths: 36,
					Escalation:     domain.Escalation{Kind: domain.EscalationFixedRate, AnnualRate: 0.05},
				},
			},
		},
		MonteCarlo: &domain.MonteCarloSettings{
			Iterations: 1000,
			Era:        domain.EraFullHistory,
			Seed:       &seed,
		},
	}
}
