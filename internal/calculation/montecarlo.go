package calculation

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// Per-month fields tracked across iterations.
const (
	fStocksStart = iota
	fBondsStart
	fCashStart
	fStocksEnd
	fBondsEnd
	fCashEnd
	fStocksWithdrawal
	fBondsWithdrawal
	fCashWithdrawal
	fNominalWithdrawal
	fRealWithdrawal
	fNominalChange
	fIncomeTotal
	fExpenseTotal
	fShortfall
	fUnmetExpense
	numFields
)

// MaxPathCells bounds iterations times months for one Monte Carlo run. Each
// cell keeps numFields float64 values, so the limit is about 770 MB of buffers.
const MaxPathCells = 6_000_000

// MonteCarloRunner resamples historical months and aggregates many paths.
type MonteCarloRunner struct {
	history *HistoricalDataManager
	workers int
	logger  Logger
}

// NewMonteCarloRunner creates a runner sampling from history.
func NewMonteCarloRunner(history *HistoricalDataManager) *MonteCarloRunner {
	return &MonteCarloRunner{
		history: history,
		workers: runtime.GOMAXPROCS(0),
		logger:  NopLogger{},
	}
}

// SetLogger sets the logger used for run diagnostics.
func (r *MonteCarloRunner) SetLogger(l Logger) { r.logger = orNop(l) }

// SetWorkers bounds the number of iterations simulated concurrently.
func (r *MonteCarloRunner) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.workers = n
}

// pathBuffers holds one flat column per tracked field, laid out month-major so
// that all iterations for a month are contiguous.
type pathBuffers struct {
	iterations int
	fields     [numFields][]float64
}

func newPathBuffers(iterations, months int) *pathBuffers {
	b := &pathBuffers{iterations: iterations}
	for f := range b.fields {
		b.fields[f] = make([]float64, iterations*months)
	}
	return b
}

func (b *pathBuffers) record(iteration int, rows []domain.MonthRow) {
	for m, row := range rows {
		idx := m*b.iterations + iteration
		b.fields[fStocksStart][idx] = row.StartBalances.Stocks.Float()
		b.fields[fBondsStart][idx] = row.StartBalances.Bonds.Float()
		b.fields[fCashStart][idx] = row.StartBalances.Cash.Float()
		b.fields[fStocksEnd][idx] = row.EndBalances.Stocks.Float()
		b.fields[fBondsEnd][idx] = row.EndBalances.Bonds.Float()
		b.fields[fCashEnd][idx] = row.EndBalances.Cash.Float()
		b.fields[fStocksWithdrawal][idx] = row.Withdrawals.ByAsset.Stocks.Float()
		b.fields[fBondsWithdrawal][idx] = row.Withdrawals.ByAsset.Bonds.Float()
		b.fields[fCashWithdrawal][idx] = row.Withdrawals.ByAsset.Cash.Float()
		b.fields[fNominalWithdrawal][idx] = row.Withdrawals.NominalTotal.Float()
		b.fields[fRealWithdrawal][idx] = row.Withdrawals.RealTotal.Float()
		b.fields[fNominalChange][idx] = row.Movement.NominalChange.Float()
		b.fields[fIncomeTotal][idx] = row.Cashflows.IncomeTotal.Float()
		b.fields[fExpenseTotal][idx] = row.Cashflows.ExpenseTotal.Float()
		b.fields[fShortfall][idx] = row.Withdrawals.Shortfall.Float()
		b.fields[fUnmetExpense][idx] = row.Cashflows.UnmetExpense.Float()
	}
}

// sortedColumn returns a sorted copy of one field for one month.
func (b *pathBuffers) sortedColumn(field, month int) []float64 {
	start := month * b.iterations
	col := slices.Clone(b.fields[field][start : start+b.iterations])
	slices.Sort(col)
	return col
}

// Run executes cfg.MonteCarlo.Iterations resampled paths. Identical seed and
// config give identical results regardless of worker count.
func (r *MonteCarloRunner) Run(cfg *domain.SimulationConfig) (*domain.MonteCarloResult, error) {
	if cfg == nil || cfg.MonteCarlo == nil {
		return nil, ErrMissingMonteCarlo
	}
	mc := cfg.MonteCarlo
	if mc.Iterations < 1 {
		return nil, fmt.Errorf("monte carlo iterations must be positive, got %d", mc.Iterations)
	}
	if r.history == nil {
		return nil, fmt.Errorf("historical data not configured")
	}

	sample, err := r.history.FilterByEra(mc.Era)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical data: %w", err)
	}
	if len(sample) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistoricalData, mc.Era)
	}

	plan, err := newPathPlan(cfg)
	if err != nil {
		return nil, err
	}

	seed := seedFunc()
	if mc.Seed != nil {
		seed = *mc.Seed
	}
	iterations, months := mc.Iterations, plan.duration
	if cells := iterations * months; cells > MaxPathCells {
		return nil, fmt.Errorf("%w: %d iterations x %d months is %d path-months, limit %d",
			ErrRunTooLarge, iterations, months, cells, MaxPathCells)
	}
	r.logger.Infof("running %d monte carlo iterations over %d months (era %s: %d samples, seed %d)",
		iterations, months, mc.Era, len(sample), seed)

	buffers := newPathBuffers(iterations, months)
	terminal := make([]domain.Money, iterations)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(max(r.workers, 1), iterations); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			returns := make([]domain.AssetReturns, months)
			capes := make([]float64, months)
			for iteration := range jobs {
				// Each iteration owns its stream, so results ignore scheduling.
				rng := rand.New(rand.NewPCG(uint64(seed), uint64(iteration)))
				for m := range returns {
					pick := sample[int(rng.Float64()*float64(len(sample)))]
					returns[m] = pick.Returns
					capes[m] = pick.CAPE
				}

				rows, end := plan.run(returns, capes, false)
				buffers.record(iteration, rows)
				terminal[iteration] = end
			}
		}()
	}
	for i := 0; i < iterations; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	successes := 0
	for _, t := range terminal {
		if t > 0 {
			successes++
		}
	}

	curves := percentileCurves(buffers, cfg.Calendar.StartMonth, months)
	median := curves[50]
	end := cfg.Portfolio.StartingBalances.Total()
	if len(median) > 0 {
		end = median[len(median)-1].EndBalances.Total()
	}

	result := &domain.MonteCarloResult{
		Kind:                 domain.ResultMonteCarlo,
		GeneratedAt:          nowFunc().UTC(),
		Era:                  mc.Era,
		Seed:                 seed,
		Iterations:           iterations,
		ProbabilityOfSuccess: float64(successes) / float64(iterations),
		Percentiles:          curves,
		TerminalValues:       terminal,
		Summary:              summarize(median, end, months, plan.inflation),
	}
	r.logger.Infof("monte carlo complete: probability of success %.4f", result.ProbabilityOfSuccess)
	return result, nil
}

// percentileCurves builds one synthetic row sequence per reported percentile.
// Each field is ranked independently, so per-asset values need not sum to
// the ranked total.
func percentileCurves(b *pathBuffers, start domain.MonthKey, months int) map[int][]domain.MonthRow {
	curves := make(map[int][]domain.MonthRow, len(domain.Percentiles))
	for _, p := range domain.Percentiles {
		curves[p] = make([]domain.MonthRow, months)
	}

	var value [numFields]float64
	for m := 0; m < months; m++ {
		var sorted [numFields][]float64
		for f := range sorted {
			sorted[f] = b.sortedColumn(f, m)
		}
		month := start.AddMonths(m)
		for _, p := range domain.Percentiles {
			for f := range value {
				value[f] = percentileSorted(sorted[f], float64(p))
			}
			curves[p][m] = syntheticRow(month, value)
		}
	}
	return curves
}

func syntheticRow(month domain.MonthKey, v [numFields]float64) domain.MonthRow {
	row := domain.MonthRow{
		Month: month,
		StartBalances: domain.AssetBalances{
			Stocks: RoundToCents(v[fStocksStart]),
			Bonds:  RoundToCents(v[fBondsStart]),
			Cash:   RoundToCents(v[fCashStart]),
		},
		EndBalances: domain.AssetBalances{
			Stocks: RoundToCents(v[fStocksEnd]),
			Bonds:  RoundToCents(v[fBondsEnd]),
			Cash:   RoundToCents(v[fCashEnd]),
		},
	}
	row.Movement.NominalChange = RoundToCents(v[fNominalChange])
	if startTotal := v[fStocksStart] + v[fBondsStart] + v[fCashStart]; startTotal > 0 {
		row.Movement.PercentChange = v[fNominalChange] / startTotal
	}
	row.Cashflows.IncomeTotal = RoundToCents(v[fIncomeTotal])
	row.Cashflows.ExpenseTotal = RoundToCents(v[fExpenseTotal])
	row.Cashflows.UnmetExpense = RoundToCents(v[fUnmetExpense])
	row.Withdrawals.ByAsset = domain.AssetBalances{
		Stocks: RoundToCents(v[fStocksWithdrawal]),
		Bonds:  RoundToCents(v[fBondsWithdrawal]),
		Cash:   RoundToCents(v[fCashWithdrawal]),
	}
	row.Withdrawals.NominalTotal = RoundToCents(v[fNominalWithdrawal])
	row.Withdrawals.RealTotal = RoundToCents(v[fRealWithdrawal])
	row.Withdrawals.Shortfall = RoundToCents(v[fShortfall])
	return row
}
