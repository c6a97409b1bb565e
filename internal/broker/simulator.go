package broker

import (
	"context"
	"sync"

	"marlin/internal/domain"
)

// Compile-time interface check.
var _ Gateway = (*SimulatorGateway)(nil)

// SimulatorGateway implements Gateway for paper trading and tests. Orders
// are accepted in memory and fills are driven explicitly through the
// Fill/Reject/Cancel push helpers, so tests control the event timing.
type SimulatorGateway struct {
	mu        sync.Mutex
	connected bool
	nextID    int64
	orders    map[int64]domain.Order
	account   domain.AccountInfo
	events    chan Event
}

// NewSimulatorGateway creates a connected simulator with an empty book.
func NewSimulatorGateway() *SimulatorGateway {
	return &SimulatorGateway{
		connected: true,
		nextID:    1000,
		orders:    make(map[int64]domain.Order),
		account:   domain.AccountInfo{AccountID: "sim", Equity: 100000, Cash: 100000, BuyingPower: 200000},
		events:    make(chan Event, 64),
	}
}

// Name returns "simulator".
func (g *SimulatorGateway) Name() string { return "simulator" }

// Connected reports the simulated session state.
func (g *SimulatorGateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// SetConnected toggles the simulated session, letting tests exercise the
// not-connected failure path.
func (g *SimulatorGateway) SetConnected(up bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = up
}

// SubmitOrder accepts the order and assigns the next sequential id.
func (g *SimulatorGateway) SubmitOrder(_ context.Context, order *domain.Order) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return 0, ErrNotConnected
	}
	g.nextID++
	o := *order
	o.ID = g.nextID
	g.orders[o.ID] = o
	return o.ID, nil
}

// CancelOrder accepts a cancellation request for a known order.
func (g *SimulatorGateway) CancelOrder(_ context.Context, orderID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return ErrNotConnected
	}
	if _, ok := g.orders[orderID]; !ok {
		return ErrUnknownOrder
	}
	return nil
}

// ModifyOrder accepts a replacement for a known order.
func (g *SimulatorGateway) ModifyOrder(_ context.Context, orderID int64, order *domain.Order) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return ErrNotConnected
	}
	if _, ok := g.orders[orderID]; !ok {
		return ErrUnknownOrder
	}
	o := *order
	o.ID = orderID
	g.orders[orderID] = o
	return nil
}

// Account returns the simulated account snapshot.
func (g *SimulatorGateway) Account(_ context.Context) (*domain.AccountInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return nil, ErrNotConnected
	}
	acct := g.account
	return &acct, nil
}

// SetAccount replaces the simulated account snapshot.
func (g *SimulatorGateway) SetAccount(acct domain.AccountInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.account = acct
}

// Events returns the push channel.
func (g *SimulatorGateway) Events() <-chan Event { return g.events }

// Fill pushes a full-fill status event for the given order.
func (g *SimulatorGateway) Fill(orderID int64, avgPrice float64) {
	g.mu.Lock()
	o := g.orders[orderID]
	g.mu.Unlock()
	g.events <- OrderStatusEvent{
		OrderID:      orderID,
		Status:       domain.OrderStatusFilled,
		FilledQty:    o.Qty,
		RemainingQty: 0,
		AvgFillPrice: avgPrice,
	}
}

// Reject pushes a rejected status event for the given order.
func (g *SimulatorGateway) Reject(orderID int64) {
	g.events <- OrderStatusEvent{OrderID: orderID, Status: domain.OrderStatusRejected}
}

// Cancelled pushes a cancelled status event for the given order.
func (g *SimulatorGateway) Cancelled(orderID int64) {
	g.events <- OrderStatusEvent{OrderID: orderID, Status: domain.OrderStatusCancelled}
}

// PushPosition pushes a position update event.
func (g *SimulatorGateway) PushPosition(ev PositionEvent) {
	g.events <- ev
}

// PushAccountValue pushes an account value update event.
func (g *SimulatorGateway) PushAccountValue(ev AccountEvent) {
	g.events <- ev
}

// Close closes the event channel. Call only after all pushes are done.
func (g *SimulatorGateway) Close() {
	close(g.events)
}
