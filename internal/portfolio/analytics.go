package portfolio

import (
	"sort"

	"marlin/internal/domain"
)

// PortfolioReturn is the total return against the recorded baseline value,
// or 0 when the baseline is 0.
func PortfolioReturn(currentValue, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (currentValue - baseline) / baseline
}

// SharpeRatio is the mean return divided by the sample standard deviation,
// or 0 when the deviation is 0. No risk-free-rate adjustment is applied.
func SharpeRatio(returns []float64) float64 {
	vol := stdDev(returns)
	if vol == 0 {
		return 0
	}
	return mean(returns) / vol
}

// ValueAtRisk returns the loss magnitude not expected to be exceeded at the
// given confidence level, computed as the negated return at the
// floor((1−confidence)×n) index of the ascending-sorted sample, clamped to
// the valid index range. An empty history yields 0.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int((1 - confidence) * float64(len(sorted)))
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return -sorted[index]
}

// MaxDrawdown iterates the returns chronologically, folding each return
// into the running peak before measuring the drawdown of that same step.
// Because the peak already includes the current return, the per-step
// drawdown collapses toward zero; the formula is kept as-is for
// compatibility with the historical metric rather than replaced with a
// high-water-mark calculation.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var maxDrawdown float64
	peak := 1.0
	for _, r := range returns {
		if grown := peak * (1 + r); grown > peak {
			peak = grown
		}
		drawdown := (peak - peak*(1+r)) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// AssetAllocation returns each position's weight of the total portfolio
// market value. A zero-valued portfolio yields an empty map.
func AssetAllocation(positions []domain.Position) map[string]float64 {
	allocation := make(map[string]float64)
	var total float64
	for _, p := range positions {
		total += p.MarketValue
	}
	if total == 0 {
		return allocation
	}
	for _, p := range positions {
		allocation[p.Symbol] = p.MarketValue / total
	}
	return allocation
}

// CashAllocation is the cash balance divided by cash plus position value,
// or 0 when both are 0.
func CashAllocation(cash, positionsValue float64) float64 {
	total := cash + positionsValue
	if total == 0 {
		return 0
	}
	return cash / total
}

// Beta is a fixed placeholder; a real computation against a market index is
// not part of this design and callers must not rely on its accuracy.
func Beta() float64 {
	return 1.0
}
