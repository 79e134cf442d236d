package calculation

import "errors"

var (
	// ErrNoHistoricalData is returned when an era filter leaves no months to sample.
	ErrNoHistoricalData = errors.New("no historical data found for era")
	// ErrInsufficientReturns is returned when a path has fewer return samples than months.
	ErrInsufficientReturns = errors.New("insufficient monthly return samples")
	// ErrMissingMonteCarlo is returned when a Monte Carlo run has no monte_carlo settings.
	ErrMissingMonteCarlo = errors.New("monte carlo configuration is required for monte-carlo mode")
	// ErrRunTooLarge is returned when iterations times months exceeds MaxPathCells.
	ErrRunTooLarge = errors.New("monte carlo run too large")
)
