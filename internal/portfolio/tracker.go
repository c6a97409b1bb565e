// Package portfolio holds the performance tracker, the portfolio risk
// analytics, and the rebalancing engine. The analytics are pure functions
// over snapshots; the tracker is the only stateful piece.
package portfolio

import (
	"math"
	"sync"
)

// DefaultWindow is the tracker capacity: one year of trading days.
const DefaultWindow = 252

// Tracker keeps a bounded FIFO window of periodic portfolio returns. Once
// the capacity is exceeded the oldest sample is evicted.
type Tracker struct {
	mu       sync.RWMutex
	returns  []float64
	capacity int
}

// NewTracker creates a Tracker with the given capacity. A capacity of 0 or
// less falls back to DefaultWindow.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultWindow
	}
	return &Tracker{capacity: capacity}
}

// Record appends a return sample, evicting the oldest when full.
func (t *Tracker) Record(r float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.returns = append(t.returns, r)
	if len(t.returns) > t.capacity {
		t.returns = t.returns[1:]
	}
}

// Returns yields a chronological copy of the stored samples.
func (t *Tracker) Returns() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.returns))
	copy(out, t.returns)
	return out
}

// Len returns the number of stored samples.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.returns)
}

// Mean returns the average stored return, or 0 with no samples.
func (t *Tracker) Mean() float64 {
	return mean(t.Returns())
}

// StdDev returns the sample standard deviation (n−1 denominator), defined
// as 0 when fewer than 2 samples exist.
func (t *Tracker) StdDev() float64 {
	return stdDev(t.Returns())
}

func mean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

func stdDev(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var sumSq float64
	for _, r := range returns {
		d := r - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(returns)-1))
}
