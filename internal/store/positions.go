package store

import (
	"sync"

	"marlin/internal/domain"
)

// PositionBook is a concurrency-safe mapping from symbol to Position. It is
// the source of truth for portfolio exposure. Upsert replaces the whole
// record (last writer wins); there is no partial-field merge.
type PositionBook struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
}

// NewPositionBook creates an empty PositionBook.
func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[string]domain.Position)}
}

// Upsert inserts or wholesale-replaces the position for p.Symbol.
func (b *PositionBook) Upsert(p domain.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[p.Symbol] = p
}

// Get returns a copy of the position for symbol, or a zero-valued Position
// when the symbol is not in the book.
func (b *PositionBook) Get(symbol string) domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.positions[symbol]
}

// All returns an unordered snapshot of every position.
func (b *PositionBook) All() []domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	return out
}

// Remove deletes the position for symbol. Positions otherwise persist at
// zero quantity.
func (b *PositionBook) Remove(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.positions, symbol)
}

// TotalMarketValue sums position market values under a single lock
// acquisition so the total never reflects a half-applied update.
func (b *PositionBook) TotalMarketValue() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, p := range b.positions {
		total += p.MarketValue
	}
	return total
}

// TotalUnrealizedPnL sums unrealized P&L across all positions.
func (b *PositionBook) TotalUnrealizedPnL() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, p := range b.positions {
		total += p.UnrealizedPnL
	}
	return total
}

// TotalRealizedPnL sums realized P&L across all positions.
func (b *PositionBook) TotalRealizedPnL() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, p := range b.positions {
		total += p.RealizedPnL
	}
	return total
}

// Len returns the number of positions in the book.
func (b *PositionBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}
