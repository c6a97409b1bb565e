// Package store provides the in-memory order and position containers plus
// the persistence helpers for performance history (SQLite journal, Parquet
// export). The in-memory containers are the authoritative runtime state;
// reads always return copies so callers never hold a live reference into a
// concurrent map.
package store

import (
	"sync"
	"time"

	"marlin/internal/domain"
)

// OrderStore is a concurrency-safe mapping from broker order id to Order.
// Every operation takes the mutex exactly once, so reads and writes are
// linearizable with respect to each other.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[int64]domain.Order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[int64]domain.Order)}
}

// Upsert inserts or replaces the order keyed by its id.
func (s *OrderStore) Upsert(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// Get returns a copy of the order with the given id. An absent id yields a
// zero-valued Order (ID 0) rather than an error.
func (s *OrderStore) Get(id int64) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// All returns a snapshot of every stored order.
func (s *OrderStore) All() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// BySymbol returns a snapshot of all orders for the given symbol.
func (s *OrderStore) BySymbol(symbol string) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out
}

// ByStatus returns a snapshot of all orders in the given lifecycle state.
func (s *OrderStore) ByStatus(status domain.OrderStatus) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Replace swaps the stored record for id with o while preserving id. It
// returns false when the id is unknown or the stored record is already
// terminal; the terminality check happens under the same critical section
// as the write, so a fill that lands between the caller's read and this
// call cannot be overwritten.
func (s *OrderStore) Replace(id int64, o domain.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.orders[id]
	if !ok || existing.Status.Terminal() {
		return false
	}
	o.ID = id
	s.orders[id] = o
	return true
}

// Transition sets the status of the order with the given id and returns the
// updated copy. The second result is false when the id is unknown or the
// stored record is already terminal; terminal records never change again.
func (s *OrderStore) Transition(id int64, status domain.OrderStatus) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status.Terminal() {
		return domain.Order{}, false
	}
	o.Status = status
	s.orders[id] = o
	return o, true
}

// Complete moves the order into the given terminal status and records the
// fill fields, returning the updated copy. The second result is false when
// the id is unknown or the record is already terminal, with the same
// atomicity as Transition.
func (s *OrderStore) Complete(id int64, status domain.OrderStatus, filledQty, avgPrice float64) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status.Terminal() {
		return domain.Order{}, false
	}
	o.Status = status
	o.FilledQty = filledQty
	o.FilledAvgPrice = avgPrice
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return o, true
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
