// Package broker defines the Gateway interface the engine uses to reach a
// brokerage, the asynchronous event types pushed back from it, and the
// Alpaca and simulator implementations.
package broker

import (
	"context"
	"errors"

	"marlin/internal/domain"
)

var (
	// ErrNotConnected is returned by every mutating gateway call when the
	// broker session is down. Calls fail fast; nothing is queued.
	ErrNotConnected = errors.New("broker gateway not connected")

	// ErrUnknownOrder is returned when the gateway has no record of the
	// referenced order id.
	ErrUnknownOrder = errors.New("broker gateway: unknown order")
)

// Gateway abstracts the brokerage connection for order execution and
// account state. Implementations treat each call as atomic success or
// failure; in-flight cancellation and timeouts are the gateway's own
// concern, driven by ctx.
type Gateway interface {
	// Name returns the gateway identifier (e.g. "alpaca", "simulator").
	Name() string

	// Connected reports whether the broker session is up.
	Connected() bool

	// SubmitOrder sends the order for execution and returns the
	// broker-assigned order id.
	SubmitOrder(ctx context.Context, order *domain.Order) (int64, error)

	// CancelOrder requests cancellation of a working order.
	CancelOrder(ctx context.Context, orderID int64) error

	// ModifyOrder replaces a working order's parameters, keeping its id.
	ModifyOrder(ctx context.Context, orderID int64, order *domain.Order) error

	// Account returns a snapshot of the account's financial metrics.
	Account(ctx context.Context) (*domain.AccountInfo, error)

	// Events returns the channel of asynchronous pushes. Events for the
	// same order id are delivered in send order; there is no ordering
	// guarantee across different ids.
	Events() <-chan Event
}

// Event is a push from the gateway: an order status change, a position
// update, or an account-value update.
type Event interface {
	event()
}

// OrderStatusEvent reports an order lifecycle transition at the broker.
type OrderStatusEvent struct {
	OrderID      int64
	Status       domain.OrderStatus
	FilledQty    float64
	RemainingQty float64
	AvgFillPrice float64
}

// PositionEvent reports the broker's current view of a position. The record
// replaces the book entry wholesale.
type PositionEvent struct {
	Symbol        string
	Qty           float64
	AvgPrice      float64
	MarketValue   float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

// AccountEvent reports a single account value by key (e.g. "CashBalance").
type AccountEvent struct {
	Key      string
	Value    float64
	Currency string
}

func (OrderStatusEvent) event() {}
func (PositionEvent) event()    {}
func (AccountEvent) event()     {}
