package calculation

import "time"

// nowFunc stamps GeneratedAt on results (override in tests for stable output).
var nowFunc = time.Now

// SetNowFunc overrides the time provider (use only in tests).
func SetNowFunc(f func() time.Time) { nowFunc = f }

func defaultSeed() int64 { return time.Now().UnixNano() }

// seedFunc supplies a Monte Carlo seed when the request carries none.
var seedFunc = defaultSeed

// SetSeedFunc overrides the seed provider (use only in tests).
func SetSeedFunc(f func() int64) { seedFunc = f }
