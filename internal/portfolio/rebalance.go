package portfolio

import (
	"log/slog"
	"math"
	"time"

	"marlin/internal/domain"
	"marlin/internal/store"
)

const (
	// minRebalanceNotional is the smallest dollar difference worth
	// correcting with an order.
	minRebalanceNotional = 100.0

	// referenceSharePrice is the assumed price per share used to size
	// rebalancing orders. Using a constant instead of the live quote is a
	// known simplification inherited from the historical sizing rule; it
	// produces wrong quantities for instruments priced far from it.
	referenceSharePrice = 100.0
)

// Rebalancer compares the current allocation against a target and emits
// corrective market-order drafts. Drafts go through the normal order
// lifecycle; the Rebalancer never talks to the gateway itself.
type Rebalancer struct {
	book *store.PositionBook
	log  *slog.Logger
}

// NewRebalancer creates a Rebalancer reading from the given position book.
func NewRebalancer(book *store.PositionBook, log *slog.Logger) *Rebalancer {
	return &Rebalancer{book: book, log: log.With("component", "rebalancer")}
}

// NeedsRebalancing reports whether any target symbol's current weight
// deviates from its target weight by strictly more than threshold. Symbols
// absent from the book have weight 0.
func (r *Rebalancer) NeedsRebalancing(target map[string]float64, threshold float64) bool {
	current := AssetAllocation(r.book.All())
	for symbol, targetWeight := range target {
		if math.Abs(current[symbol]-targetWeight) > threshold {
			return true
		}
	}
	return false
}

// GenerateOrders emits one market-order draft per target symbol whose
// dollar deviation exceeds the minimum rebalancing notional: a buy when the
// target value exceeds the current value, otherwise a sell. Quantities are
// sized with the constant reference share price.
func (r *Rebalancer) GenerateOrders(target map[string]float64) []domain.Order {
	positions := r.book.All()
	current := AssetAllocation(positions)
	var totalValue float64
	for _, p := range positions {
		totalValue += p.MarketValue
	}

	var orders []domain.Order
	for symbol, targetWeight := range target {
		targetValue := totalValue * targetWeight
		currentValue := current[symbol] * totalValue
		difference := targetValue - currentValue

		if math.Abs(difference) <= minRebalanceNotional {
			continue
		}

		side := domain.OrderSideBuy
		if difference < 0 {
			side = domain.OrderSideSell
		}
		orders = append(orders, domain.Order{
			Symbol:    symbol,
			Type:      domain.OrderTypeMarket,
			Side:      side,
			Qty:       math.Abs(difference) / referenceSharePrice,
			CreatedAt: time.Now(),
		})
		r.log.Info("rebalancing order drafted", "symbol", symbol, "side", side, "difference", difference)
	}
	return orders
}
