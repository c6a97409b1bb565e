// Package domain defines the core types shared across the trading engine:
// orders, positions, account snapshots, and trade statistics.
package domain

import "time"

// Market identifies a trading venue region.
type Market string

const (
	MarketUS Market = "us"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus is the lifecycle state of an order. Transitions run
// pending -> submitted -> one of the terminal states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether the status is final. Terminal orders are
// immutable; cancel and modify requests against them fail.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// Order is a single order record. ID is the broker-assigned identifier and
// stays 0 until the gateway accepts the order.
type Order struct {
	ID             int64
	Symbol         string
	Type           OrderType
	Side           OrderSide
	Qty            float64
	LimitPrice     float64 // required > 0 for limit and stop-limit orders
	StopPrice      float64 // required > 0 for stop and stop-limit orders
	Status         OrderStatus
	FilledQty      float64
	FilledAvgPrice float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReferencePrice returns the price used for notional calculations: the limit
// price when set, otherwise the stop price, otherwise 0. Market orders carry
// no intrinsic price, so their reference price is 0.
func (o *Order) ReferencePrice() float64 {
	if o.LimitPrice > 0 {
		return o.LimitPrice
	}
	if o.StopPrice > 0 {
		return o.StopPrice
	}
	return 0
}

// Notional returns the dollar exposure of the order (qty x reference price).
func (o *Order) Notional() float64 {
	return o.Qty * o.ReferencePrice()
}

// Position is the holding in a single instrument. Qty is signed; 0 means
// flat. Positions are replaced wholesale by gateway position updates.
type Position struct {
	Symbol        string
	Qty           float64
	AvgEntryPrice float64
	MarketValue   float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

// AccountInfo is a snapshot of account-level financial metrics reported by
// the brokerage.
type AccountInfo struct {
	AccountID   string
	Equity      float64
	Cash        float64
	BuyingPower float64
}

// TradeStats are running counters maintained alongside order-state
// transitions. WinningTrades classification on fill is an open product
// question; the counter exists but is never incremented.
type TradeStats struct {
	TotalTrades   int
	WinningTrades int
	DailyPnL      float64
}

// WinRate returns winning trades over total trades, or 0 when no trades
// have completed.
func (s TradeStats) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades)
}
