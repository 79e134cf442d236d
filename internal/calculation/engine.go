package calculation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// SimulationEngine routes a validated configuration to the single-path
// simulator or the Monte Carlo runner.
type SimulationEngine struct {
	Simulator      *Simulator
	MonteCarlo     *MonteCarloRunner
	HistoricalData *HistoricalDataManager
	Logger         Logger
}

// NewSimulationEngine creates an engine. history may be nil when only
// manual and deterministic runs are needed.
func NewSimulationEngine(history *HistoricalDataManager) *SimulationEngine {
	return &SimulationEngine{
		Simulator:      NewSimulator(),
		MonteCarlo:     NewMonteCarloRunner(history),
		HistoricalData: history,
		Logger:         NopLogger{},
	}
}

// SetLogger sets the logger for the engine and its collaborators. If nil is
// provided, a no-op logger is used.
func (se *SimulationEngine) SetLogger(l Logger) {
	se.Logger = orNop(l)
	se.Simulator.SetLogger(se.Logger)
	se.MonteCarlo.SetLogger(se.Logger)
	if se.HistoricalData != nil {
		se.HistoricalData.SetLogger(se.Logger)
	}
}

// Run executes cfg in the mode it names. An empty mode is treated as manual.
// requestID is stamped on the result; an empty one is generated.
func (se *SimulationEngine) Run(ctx context.Context, cfg *domain.SimulationConfig, requestID string) (domain.SimulationResult, error) {
	if cfg == nil {
		return domain.SimulationResult{}, fmt.Errorf("simulation config is nil")
	}
	switch cfg.Mode {
	case "", domain.ModeManual:
		res, err := se.RunManual(ctx, cfg, requestID)
		return domain.SimulationResult{SinglePath: res}, err
	case domain.ModeMonteCarlo:
		res, err := se.RunMonteCarlo(ctx, cfg, requestID)
		return domain.SimulationResult{MonteCarlo: res}, err
	}
	return domain.SimulationResult{}, fmt.Errorf("unknown simulation mode %q", cfg.Mode)
}

// RunManual simulates one path over returns drawn from the configured
// assumptions.
func (se *SimulationEngine) RunManual(ctx context.Context, cfg *domain.SimulationConfig, requestID string) (*domain.SinglePathResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := seedFunc()
	if s := cfg.Portfolio.Assumptions.Seed; s != nil {
		seed = *s
	}
	se.Logger.Debugf("generating manual returns with seed %d", seed)

	returns := NewReturnGenerator(seed).Generate(cfg.Portfolio.Assumptions, cfg.Calendar.DurationMonths)
	return se.Simulator.SimulatePath(cfg, PathInput{
		Returns:   returns,
		RequestID: ensureRequestID(requestID),
		Kind:      domain.ResultManual,
	})
}

// RunDeterministic simulates one path where every month earns the expected
// monthly return of each asset class.
func (se *SimulationEngine) RunDeterministic(ctx context.Context, cfg *domain.SimulationConfig, requestID string) (*domain.SinglePathResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expected := ExpectedMonthlyReturns(cfg.Portfolio.Assumptions)
	return se.Simulator.SimulatePath(cfg, PathInput{
		Returns:   ConstantReturns(expected, cfg.Calendar.DurationMonths),
		RequestID: ensureRequestID(requestID),
		Kind:      domain.ResultDeterministic,
	})
}

// RunMonteCarlo resamples historical months for cfg.MonteCarlo.Iterations paths.
func (se *SimulationEngine) RunMonteCarlo(ctx context.Context, cfg *domain.SimulationConfig, requestID string) (*domain.MonteCarloResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := se.MonteCarlo.Run(cfg)
	if err != nil {
		return nil, err
	}
	res.RequestID = ensureRequestID(requestID)
	return res, nil
}

func ensureRequestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
