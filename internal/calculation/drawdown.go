package calculation

import (
	"fmt"
	"math"
	"slices"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// DrawdownResult reports what an allocator took from each asset class.
type DrawdownResult struct {
	Deductions domain.AssetBalances
	Shortfall  domain.Money
}

// Total is the amount actually sourced.
func (r DrawdownResult) Total() domain.Money {
	return r.Deductions.Total()
}

// Allocator turns a withdrawal amount into per-asset deductions, mutating balances.
// Implementations never take more than a balance holds.
type Allocator interface {
	Allocate(amount domain.Money, balances *domain.AssetBalances, year int) DrawdownResult
}

// NewAllocator builds the allocator named by the drawdown configuration.
func NewAllocator(cfg domain.DrawdownStrategyConfig) (Allocator, error) {
	switch p := cfg.Params.(type) {
	case domain.BucketParams:
		return BucketAllocator{Order: p.Order}, nil
	case domain.RebalancingParams:
		return RebalancingAllocator{Params: p}, nil
	case nil:
		switch cfg.Kind {
		case domain.Bucket:
			return BucketAllocator{Order: domain.AssetClasses[:]}, nil
		case domain.Rebalancing:
			return nil, fmt.Errorf("rebalancing drawdown requires a target allocation")
		}
	}
	return nil, fmt.Errorf("unknown drawdown strategy %q", cfg.Kind)
}

// BucketAllocator drains asset classes one at a time in priority order.
type BucketAllocator struct {
	Order []domain.AssetClass
}

func (a BucketAllocator) Allocate(amount domain.Money, balances *domain.AssetBalances, _ int) DrawdownResult {
	return BucketDrawdown(amount, balances, a.Order)
}

// BucketDrawdown takes min(remaining, balance) from each class in order and
// stops once the amount is met. Whatever is left is the shortfall.
func BucketDrawdown(amount domain.Money, balances *domain.AssetBalances, order []domain.AssetClass) DrawdownResult {
	var res DrawdownResult
	if amount <= 0 {
		return res
	}
	remaining := amount
	for _, asset := range order {
		if remaining == 0 {
			break
		}
		take := min(remaining, max(balances.Get(asset), 0))
		if take == 0 {
			continue
		}
		balances.Add(asset, -take)
		res.Deductions.Add(asset, take)
		remaining -= take
	}
	res.Shortfall = remaining
	return res
}

// RebalancingAllocator sources withdrawals so the portfolio drifts toward its
// target allocation, optionally following a glide path.
type RebalancingAllocator struct {
	Params domain.RebalancingParams
}

// TargetFor returns the target allocation in force during the given year.
func (a RebalancingAllocator) TargetFor(year int) domain.AssetWeights {
	if a.Params.GlidePathEnabled && len(a.Params.GlidePath) > 0 {
		return InterpolateGlidePath(year, a.Params.GlidePath)
	}
	return a.Params.TargetAllocation
}

func (a RebalancingAllocator) Allocate(amount domain.Money, balances *domain.AssetBalances, year int) DrawdownResult {
	return RebalancingDrawdown(amount, balances, a.TargetFor(year))
}

// RebalancingDrawdown sources amount first from overweight classes, then by
// target weight, then by sweeping stocks, bonds, cash in that order.
func RebalancingDrawdown(amount domain.Money, balances *domain.AssetBalances, target domain.AssetWeights) DrawdownResult {
	var res DrawdownResult
	if amount <= 0 {
		return res
	}
	total := balances.Total()
	if total <= 0 {
		res.Shortfall = amount
		return res
	}

	var bal, want [3]float64
	for i, asset := range domain.AssetClasses {
		bal[i] = max(balances.Get(asset), 0).Float()
	}

	// Depleted classes drop out of the target and the rest is renormalised.
	var active [3]float64
	var activeSum float64
	for i, asset := range domain.AssetClasses {
		if bal[i] > 0 {
			active[i] = max(target.Get(asset), 0)
		}
		activeSum += active[i]
	}
	if activeSum > 0 {
		for i := range active {
			active[i] /= activeSum
		}
	}

	var overweight [3]float64
	var totalOverweight float64
	for i := range bal {
		overweight[i] = math.Max(0, bal[i]-total.Float()*active[i])
		totalOverweight += overweight[i]
	}

	remaining := amount.Float()
	if totalOverweight > 0 {
		sourced := math.Min(remaining, totalOverweight)
		for i := range bal {
			d := math.Min(bal[i], sourced*overweight[i]/totalOverweight)
			want[i] += d
			bal[i] -= d
			remaining -= d
		}
	}

	if remaining > 0 && activeSum > 0 {
		need := remaining
		for i := range bal {
			if bal[i] > 0 {
				d := math.Min(bal[i], need*active[i])
				want[i] += d
				bal[i] -= d
				remaining -= d
			}
		}
	}

	if remaining > 0 {
		for i := range bal {
			d := math.Min(bal[i], remaining)
			want[i] += d
			bal[i] -= d
			remaining -= d
			if remaining <= 0 {
				break
			}
		}
	}

	deductions := settleCents(want, balances, min(amount, total))
	for i, asset := range domain.AssetClasses {
		balances.Add(asset, -deductions[i])
		res.Deductions.Set(asset, deductions[i])
	}
	res.Shortfall = amount - res.Deductions.Total()
	return res
}

// settleCents rounds float deductions to whole cents summing to goal, using
// largest remainders and then a fixed-order sweep, bounded by each balance.
func settleCents(want [3]float64, balances *domain.AssetBalances, goal domain.Money) [3]domain.Money {
	var out [3]domain.Money
	var limit [3]domain.Money
	var sum domain.Money
	for i, asset := range domain.AssetClasses {
		limit[i] = max(balances.Get(asset), 0)
		out[i] = min(domain.Money(math.Floor(math.Max(want[i], 0))), limit[i])
		sum += out[i]
	}

	idx := []int{0, 1, 2}
	slices.SortStableFunc(idx, func(a, b int) int {
		fa := want[a] - math.Floor(want[a])
		fb := want[b] - math.Floor(want[b])
		switch {
		case fa > fb:
			return -1
		case fa < fb:
			return 1
		}
		return 0
	})
	for _, i := range idx {
		if sum >= goal {
			break
		}
		if want[i] > float64(out[i]) && out[i] < limit[i] {
			out[i]++
			sum++
		}
	}

	for i := range out {
		if sum >= goal {
			break
		}
		take := min(goal-sum, limit[i]-out[i])
		out[i] += take
		sum += take
	}
	return out
}

// InterpolateGlidePath returns the allocation for a simulated year, linearly
// interpolated between bracketing waypoints and clamped outside their range.
func InterpolateGlidePath(year int, waypoints []domain.GlidePathWaypoint) domain.AssetWeights {
	if len(waypoints) == 0 {
		return domain.AssetWeights{}
	}
	sorted := slices.Clone(waypoints)
	slices.SortStableFunc(sorted, func(a, b domain.GlidePathWaypoint) int { return a.Year - b.Year })

	first, last := sorted[0], sorted[len(sorted)-1]
	if year <= first.Year {
		return first.Allocation
	}
	if year >= last.Year {
		return last.Allocation
	}

	before, after := first, last
	for i := 0; i < len(sorted)-1; i++ {
		if year >= sorted[i].Year && year <= sorted[i+1].Year {
			before, after = sorted[i], sorted[i+1]
			break
		}
	}
	span := after.Year - before.Year
	if span == 0 {
		return before.Allocation
	}
	progress := float64(year-before.Year) / float64(span)

	var out domain.AssetWeights
	for _, asset := range domain.AssetClasses {
		lo, hi := before.Allocation.Get(asset), after.Allocation.Get(asset)
		out.Set(asset, lo+(hi-lo)*progress)
	}
	return out
}
