package domain

import (
	"fmt"

	"github.com/rpgo/retirement-simulator/pkg/decimal"
)

// Money is an integer count of cents.
type Money = decimal.Money

// Percent is a decimal fraction (0.04 == 4%).
type Percent = float64

// AssetClass names one of the three portfolio partitions.
type AssetClass string

const (
	Stocks AssetClass = "stocks"
	Bonds  AssetClass = "bonds"
	Cash   AssetClass = "cash"
)

// AssetClasses is the fixed enumeration order used by every per-asset loop.
var AssetClasses = [3]AssetClass{Stocks, Bonds, Cash}

// Valid reports whether a is a known asset class.
func (a AssetClass) Valid() bool {
	switch a {
	case Stocks, Bonds, Cash:
		return true
	}
	return false
}

// ParseAssetClass validates an asset class name.
func ParseAssetClass(s string) (AssetClass, error) {
	a := AssetClass(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown asset class %q", s)
	}
	return a, nil
}

// AssetBalances is the stocks/bonds/cash partition of a portfolio in cents.
type AssetBalances struct {
	Stocks Money `yaml:"stocks" json:"stocks"`
	Bonds  Money `yaml:"bonds" json:"bonds"`
	Cash   Money `yaml:"cash" json:"cash"`
}

// Get returns the balance of one asset class.
func (b AssetBalances) Get(a AssetClass) Money {
	switch a {
	case Stocks:
		return b.Stocks
	case Bonds:
		return b.Bonds
	case Cash:
		return b.Cash
	}
	return 0
}

// Set overwrites the balance of one asset class.
func (b *AssetBalances) Set(a AssetClass, v Money) {
	switch a {
	case Stocks:
		b.Stocks = v
	case Bonds:
		b.Bonds = v
	case Cash:
		b.Cash = v
	}
}

// Add adds delta to one asset class.
func (b *AssetBalances) Add(a AssetClass, delta Money) {
	b.Set(a, b.Get(a)+delta)
}

// Total is the sum across asset classes.
func (b AssetBalances) Total() Money {
	return b.Stocks + b.Bonds + b.Cash
}

// AssetWeights holds one fraction per asset class (allocations, returns).
type AssetWeights struct {
	Stocks float64 `yaml:"stocks" json:"stocks"`
	Bonds  float64 `yaml:"bonds" json:"bonds"`
	Cash   float64 `yaml:"cash" json:"cash"`
}

// Get returns the weight for one asset class.
func (w AssetWeights) Get(a AssetClass) float64 {
	switch a {
	case Stocks:
		return w.Stocks
	case Bonds:
		return w.Bonds
	case Cash:
		return w.Cash
	}
	return 0
}

// Set overwrites the weight for one asset class.
func (w *AssetWeights) Set(a AssetClass, v float64) {
	switch a {
	case Stocks:
		w.Stocks = v
	case Bonds:
		w.Bonds = v
	case Cash:
		w.Cash = v
	}
}

// Sum adds the three weights.
func (w AssetWeights) Sum() float64 {
	return w.Stocks + w.Bonds + w.Cash
}

// AssetReturns is one month's return fraction per asset class.
type AssetReturns = AssetWeights
