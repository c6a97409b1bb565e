package engine

import (
	"fmt"
	"sync"

	"marlin/internal/domain"
)

// RiskManager enforces pre-trade risk limits: maximum order notional and
// maximum daily loss. It never mutates order or counter state; callers pass
// in the current daily P&L.
type RiskManager struct {
	mu              sync.RWMutex
	maxPositionSize float64
	maxDailyLoss    float64
}

// NewRiskManager creates a RiskManager with the given limits, expressed in
// account currency (e.g. 10000 allows $10k of notional per order).
func NewRiskManager(maxPositionSize, maxDailyLoss float64) *RiskManager {
	return &RiskManager{
		maxPositionSize: maxPositionSize,
		maxDailyLoss:    maxDailyLoss,
	}
}

// SetMaxPositionSize replaces the notional limit.
func (rm *RiskManager) SetMaxPositionSize(v float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.maxPositionSize = v
}

// SetMaxDailyLoss replaces the daily loss limit.
func (rm *RiskManager) SetMaxDailyLoss(v float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.maxDailyLoss = v
}

// MaxPositionSize returns the current notional limit.
func (rm *RiskManager) MaxPositionSize() float64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.maxPositionSize
}

// MaxDailyLoss returns the current daily loss limit.
func (rm *RiskManager) MaxDailyLoss() float64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.maxDailyLoss
}

// CheckOrder evaluates the proposed order against the limits. The notional
// check uses the order's reference price (limit, else stop); Market orders
// carry no price, so their notional is 0 and the check always passes.
func (rm *RiskManager) CheckOrder(order *domain.Order, dailyPnL float64) error {
	rm.mu.RLock()
	maxSize := rm.maxPositionSize
	maxLoss := rm.maxDailyLoss
	rm.mu.RUnlock()

	if notional := order.Notional(); notional > maxSize {
		return &RiskError{Reason: fmt.Sprintf("order notional %.2f exceeds max position size %.2f", notional, maxSize)}
	}
	if dailyPnL < -maxLoss {
		return &RiskError{Reason: fmt.Sprintf("daily loss %.2f exceeds max daily loss %.2f", -dailyPnL, maxLoss)}
	}
	return nil
}
