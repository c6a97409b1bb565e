package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"marlin/internal/broker"
	"marlin/internal/domain"
	"marlin/internal/store"
)

// OrderManager owns the order store and the running trade statistics. It
// validates and risk-checks every order before it reaches the gateway and
// applies asynchronous status pushes coming back from it.
//
// Lifecycle: orders are created pending, stored as submitted once the
// gateway assigns an id, and finish filled, cancelled, or rejected. A
// gateway failure on submit never enters the store.
type OrderManager struct {
	gateway broker.Gateway
	orders  *store.OrderStore
	risk    *RiskManager
	log     *slog.Logger

	// statsMu guards the trade statistics, which are only touched
	// alongside order-state transitions.
	statsMu sync.RWMutex
	stats   domain.TradeStats
}

// NewOrderManager creates an OrderManager wired with the given gateway,
// store, and risk manager.
func NewOrderManager(gateway broker.Gateway, orders *store.OrderStore, risk *RiskManager, log *slog.Logger) *OrderManager {
	return &OrderManager{
		gateway: gateway,
		orders:  orders,
		risk:    risk,
		log:     log.With("component", "orders"),
	}
}

// ---------------------------------------------------------------------------
// Order placement
// ---------------------------------------------------------------------------

// PlaceMarketOrder creates and submits a market order.
func (m *OrderManager) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, qty float64) (int64, error) {
	return m.Submit(ctx, domain.Order{
		Symbol: symbol,
		Type:   domain.OrderTypeMarket,
		Side:   side,
		Qty:    qty,
	})
}

// PlaceLimitOrder creates and submits a limit order.
func (m *OrderManager) PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, qty, price float64) (int64, error) {
	return m.Submit(ctx, domain.Order{
		Symbol:     symbol,
		Type:       domain.OrderTypeLimit,
		Side:       side,
		Qty:        qty,
		LimitPrice: price,
	})
}

// PlaceStopOrder creates and submits a stop order.
func (m *OrderManager) PlaceStopOrder(ctx context.Context, symbol string, side domain.OrderSide, qty, stopPrice float64) (int64, error) {
	return m.Submit(ctx, domain.Order{
		Symbol:    symbol,
		Type:      domain.OrderTypeStop,
		Side:      side,
		Qty:       qty,
		StopPrice: stopPrice,
	})
}

// PlaceStopLimitOrder creates and submits a stop-limit order.
func (m *OrderManager) PlaceStopLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, qty, limitPrice, stopPrice float64) (int64, error) {
	return m.Submit(ctx, domain.Order{
		Symbol:     symbol,
		Type:       domain.OrderTypeStopLimit,
		Side:       side,
		Qty:        qty,
		LimitPrice: limitPrice,
		StopPrice:  stopPrice,
	})
}

// Submit validates the draft, runs the risk checks, and forwards it to the
// gateway. On acceptance the order is stored as submitted under the
// broker-assigned id. No internal lock is held across the gateway call.
func (m *OrderManager) Submit(ctx context.Context, draft domain.Order) (int64, error) {
	draft.Status = domain.OrderStatusPending
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}

	if err := validateOrder(&draft); err != nil {
		m.log.Error("order validation failed", "symbol", draft.Symbol, "err", err)
		return 0, err
	}
	if err := m.risk.CheckOrder(&draft, m.DailyPnL()); err != nil {
		m.log.Error("order rejected by risk checks", "symbol", draft.Symbol, "err", err)
		return 0, err
	}

	id, err := m.gateway.SubmitOrder(ctx, &draft)
	if err != nil {
		if errors.Is(err, broker.ErrNotConnected) {
			return 0, err
		}
		return 0, &GatewayError{Op: "submit", Err: err}
	}

	draft.ID = id
	draft.Status = domain.OrderStatusSubmitted
	draft.UpdatedAt = time.Now()
	m.orders.Upsert(draft)

	m.log.Info("order submitted", "id", id, "symbol", draft.Symbol, "type", draft.Type, "side", draft.Side, "qty", draft.Qty)
	return id, nil
}

// CancelOrder requests cancellation of a working order. It fails with
// ErrNotFound for unknown ids and ErrInvalidState for terminal orders.
func (m *OrderManager) CancelOrder(ctx context.Context, id int64) error {
	o, ok := m.orders.Get(id)
	if !ok {
		m.log.Warn("cancel for unknown order", "id", id)
		return ErrNotFound
	}
	if o.Status.Terminal() {
		return ErrInvalidState
	}

	if err := m.gateway.CancelOrder(ctx, id); err != nil {
		if errors.Is(err, broker.ErrNotConnected) {
			return err
		}
		return &GatewayError{Op: "cancel", Err: err}
	}

	if _, ok := m.orders.Transition(id, domain.OrderStatusCancelled); !ok {
		// A fill or other terminal push landed while the cancel request
		// was in flight; the stored record stays as the push left it.
		m.log.Warn("order reached a terminal state during cancel", "id", id)
		return ErrInvalidState
	}
	m.log.Info("order cancelled", "id", id)
	return nil
}

// ModifyOrder re-validates the new fields and, on gateway success, replaces
// the stored record while preserving the original id.
func (m *OrderManager) ModifyOrder(ctx context.Context, id int64, draft domain.Order) error {
	existing, ok := m.orders.Get(id)
	if !ok {
		m.log.Warn("modify for unknown order", "id", id)
		return ErrNotFound
	}
	if existing.Status.Terminal() {
		return ErrInvalidState
	}

	if err := validateOrder(&draft); err != nil {
		m.log.Error("modify validation failed", "id", id, "err", err)
		return err
	}
	if err := m.risk.CheckOrder(&draft, m.DailyPnL()); err != nil {
		m.log.Error("modify rejected by risk checks", "id", id, "err", err)
		return err
	}

	if err := m.gateway.ModifyOrder(ctx, id, &draft); err != nil {
		if errors.Is(err, broker.ErrNotConnected) {
			return err
		}
		return &GatewayError{Op: "modify", Err: err}
	}

	draft.Status = domain.OrderStatusSubmitted
	draft.CreatedAt = existing.CreatedAt
	draft.UpdatedAt = time.Now()
	if !m.orders.Replace(id, draft) {
		// Same in-flight race as cancel: a terminal push won, so the
		// replacement must not resurrect the order.
		m.log.Warn("order reached a terminal state during modify", "id", id)
		return ErrInvalidState
	}
	m.log.Info("order modified", "id", id)
	return nil
}

// ---------------------------------------------------------------------------
// Status pushes and accessors
// ---------------------------------------------------------------------------

// ApplyStatus applies an asynchronous order-status push. Transitions are
// monotonic: pushes against terminal orders and unknown ids are dropped.
// A fill increments the trade counter; whether the trade was a win is an
// unresolved product question, so WinningTrades is never incremented here.
func (m *OrderManager) ApplyStatus(ev broker.OrderStatusEvent) {
	if !ev.Status.Terminal() {
		return
	}
	if _, ok := m.orders.Complete(ev.OrderID, ev.Status, ev.FilledQty, ev.AvgFillPrice); !ok {
		m.log.Debug("status push dropped", "id", ev.OrderID, "status", ev.Status)
		return
	}

	if ev.Status == domain.OrderStatusFilled {
		m.statsMu.Lock()
		m.stats.TotalTrades++
		m.statsMu.Unlock()
	}
	m.log.Info("order status updated", "id", ev.OrderID, "status", ev.Status, "filled", ev.FilledQty)
}

// AddDailyPnL adds a realized P&L delta to the daily counter read by the
// risk checks.
func (m *OrderManager) AddDailyPnL(delta float64) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.DailyPnL += delta
}

// ResetDailyPnL zeroes the daily counter, typically at the session roll.
func (m *OrderManager) ResetDailyPnL() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.DailyPnL = 0
}

// DailyPnL returns the current daily P&L counter.
func (m *OrderManager) DailyPnL() float64 {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats.DailyPnL
}

// Stats returns a copy of the running trade statistics.
func (m *OrderManager) Stats() domain.TradeStats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats
}

// Order returns a copy of the order with the given id, or a zero-valued
// Order when the id is unknown.
func (m *OrderManager) Order(id int64) domain.Order {
	o, _ := m.orders.Get(id)
	return o
}

// Orders returns a snapshot of every tracked order.
func (m *OrderManager) Orders() []domain.Order {
	return m.orders.All()
}

// OrdersBySymbol returns a snapshot of all orders for the symbol.
func (m *OrderManager) OrdersBySymbol(symbol string) []domain.Order {
	return m.orders.BySymbol(symbol)
}

// OrdersByStatus returns a snapshot of all orders in the given state.
func (m *OrderManager) OrdersByStatus(status domain.OrderStatus) []domain.Order {
	return m.orders.ByStatus(status)
}

// validateOrder checks the structural order fields. It is a pure function
// with no side effects; risk checks run separately.
func validateOrder(o *domain.Order) error {
	if o.Symbol == "" {
		return &ValidationError{Reason: "empty symbol"}
	}
	if o.Qty <= 0 {
		return &ValidationError{Reason: "quantity must be positive"}
	}
	switch o.Type {
	case domain.OrderTypeLimit:
		if o.LimitPrice <= 0 {
			return &ValidationError{Reason: "limit order requires a positive limit price"}
		}
	case domain.OrderTypeStop:
		if o.StopPrice <= 0 {
			return &ValidationError{Reason: "stop order requires a positive stop price"}
		}
	case domain.OrderTypeStopLimit:
		if o.LimitPrice <= 0 || o.StopPrice <= 0 {
			return &ValidationError{Reason: "stop-limit order requires positive limit and stop prices"}
		}
	}
	return nil
}
