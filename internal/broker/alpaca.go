package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marlin/internal/domain"
	"marlin/internal/util"
)

// Compile-time interface check.
var _ Gateway = (*AlpacaGateway)(nil)

// submitBurst lets a rebalancing batch submit a handful of orders back to
// back before the per-minute rate takes over.
const submitBurst = 5

// AlpacaGateway implements Gateway against the Alpaca trading API. Alpaca
// identifies orders by string UUIDs; the gateway assigns its own sequential
// int64 ids and keeps the mapping so the engine only ever sees integers.
type AlpacaGateway struct {
	client  *alpaca.Client
	limiter *util.RateLimiter
	log     *slog.Logger

	connected atomic.Bool
	nextID    atomic.Int64

	mu       sync.Mutex
	toRemote map[int64]string // local id -> alpaca order id
	toLocal  map[string]int64 // alpaca order id -> local id

	events chan Event
}

// NewAlpacaGateway creates an AlpacaGateway with the given credentials and
// endpoint. The gateway starts disconnected; call Connect before trading.
func NewAlpacaGateway(apiKey, apiSecret, baseURL string, submitPerMinute int, log *slog.Logger) *AlpacaGateway {
	return &AlpacaGateway{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		limiter:  util.NewRateLimiter(submitPerMinute, submitBurst),
		log:      log.With("gateway", "alpaca"),
		toRemote: make(map[int64]string),
		toLocal:  make(map[string]int64),
		events:   make(chan Event, 256),
	}
}

// Name returns "alpaca".
func (g *AlpacaGateway) Name() string { return "alpaca" }

// Connected reports whether the session has been established.
func (g *AlpacaGateway) Connected() bool { return g.connected.Load() }

// Connect verifies the credentials with an account request and starts the
// trade-update stream. Stream events are translated onto the Events channel.
func (g *AlpacaGateway) Connect(ctx context.Context) error {
	if _, err := g.client.GetAccount(); err != nil {
		return fmt.Errorf("verifying alpaca session: %w", err)
	}
	g.connected.Store(true)
	g.client.StreamTradeUpdatesInBackground(ctx, g.handleTradeUpdate)
	g.log.Info("connected")
	return nil
}

// Disconnect marks the session down. Subsequent mutating calls fail fast.
func (g *AlpacaGateway) Disconnect() {
	g.connected.Store(false)
	g.log.Info("disconnected")
}

// Events returns the push channel.
func (g *AlpacaGateway) Events() <-chan Event { return g.events }

// SubmitOrder places the order with Alpaca and returns the local id mapped
// to the Alpaca order. The submit path is rate limited.
func (g *AlpacaGateway) SubmitOrder(ctx context.Context, order *domain.Order) (int64, error) {
	if !g.connected.Load() {
		return 0, ErrNotConnected
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req := alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           decimalPtr(order.Qty),
		Side:          alpacaSide(order.Side),
		Type:          alpacaType(order.Type),
		TimeInForce:   alpaca.Day,
		ClientOrderID: uuid.NewString(),
	}
	if order.LimitPrice > 0 {
		req.LimitPrice = decimalPtr(order.LimitPrice)
	}
	if order.StopPrice > 0 {
		req.StopPrice = decimalPtr(order.StopPrice)
	}

	placed, err := g.client.PlaceOrder(req)
	if err != nil {
		return 0, fmt.Errorf("placing order for %s: %w", order.Symbol, err)
	}

	id := g.register(placed.ID)
	g.log.Info("order submitted", "id", id, "symbol", order.Symbol, "side", order.Side, "qty", order.Qty)
	return id, nil
}

// CancelOrder cancels the Alpaca order mapped to the local id.
func (g *AlpacaGateway) CancelOrder(_ context.Context, orderID int64) error {
	if !g.connected.Load() {
		return ErrNotConnected
	}
	remote, ok := g.remote(orderID)
	if !ok {
		return ErrUnknownOrder
	}
	if err := g.client.CancelOrder(remote); err != nil {
		return fmt.Errorf("cancelling order %d: %w", orderID, err)
	}
	return nil
}

// ModifyOrder replaces the working order's quantity and prices while the
// local id keeps pointing at the replacement.
func (g *AlpacaGateway) ModifyOrder(_ context.Context, orderID int64, order *domain.Order) error {
	if !g.connected.Load() {
		return ErrNotConnected
	}
	remote, ok := g.remote(orderID)
	if !ok {
		return ErrUnknownOrder
	}

	req := alpaca.ReplaceOrderRequest{Qty: decimalPtr(order.Qty)}
	if order.LimitPrice > 0 {
		req.LimitPrice = decimalPtr(order.LimitPrice)
	}
	if order.StopPrice > 0 {
		req.StopPrice = decimalPtr(order.StopPrice)
	}

	replacement, err := g.client.ReplaceOrder(remote, req)
	if err != nil {
		return fmt.Errorf("modifying order %d: %w", orderID, err)
	}

	// Alpaca issues a new order id for the replacement; re-point the local id.
	g.mu.Lock()
	delete(g.toLocal, remote)
	g.toRemote[orderID] = replacement.ID
	g.toLocal[replacement.ID] = orderID
	g.mu.Unlock()
	return nil
}

// Account returns the account's financial snapshot.
func (g *AlpacaGateway) Account(_ context.Context) (*domain.AccountInfo, error) {
	if !g.connected.Load() {
		return nil, ErrNotConnected
	}
	acct, err := g.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	return &domain.AccountInfo{
		AccountID:   acct.ID,
		Equity:      acct.Equity.InexactFloat64(),
		Cash:        acct.Cash.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
	}, nil
}

// SyncPositions fetches the current Alpaca positions and pushes one
// PositionEvent per holding, plus a cash AccountEvent.
func (g *AlpacaGateway) SyncPositions(_ context.Context) error {
	if !g.connected.Load() {
		return ErrNotConnected
	}
	positions, err := g.client.GetPositions()
	if err != nil {
		return fmt.Errorf("fetching positions: %w", err)
	}
	for _, p := range positions {
		ev := PositionEvent{
			Symbol:   p.Symbol,
			Qty:      p.Qty.InexactFloat64(),
			AvgPrice: p.AvgEntryPrice.InexactFloat64(),
		}
		if p.MarketValue != nil {
			ev.MarketValue = p.MarketValue.InexactFloat64()
		}
		if p.UnrealizedPL != nil {
			ev.UnrealizedPnL = p.UnrealizedPL.InexactFloat64()
		}
		g.events <- ev
	}

	acct, err := g.client.GetAccount()
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}
	g.events <- AccountEvent{Key: "CashBalance", Value: acct.Cash.InexactFloat64(), Currency: "USD"}
	return nil
}

func (g *AlpacaGateway) handleTradeUpdate(tu alpaca.TradeUpdate) {
	local, ok := g.local(tu.Order.ID)
	if !ok {
		// Order placed outside this process; nothing to route it to.
		g.log.Debug("trade update for unknown order", "alpaca_id", tu.Order.ID, "event", tu.Event)
		return
	}

	var status domain.OrderStatus
	switch tu.Event {
	case "fill":
		status = domain.OrderStatusFilled
	case "partial_fill":
		status = domain.OrderStatusSubmitted
	case "canceled", "expired":
		status = domain.OrderStatusCancelled
	case "rejected":
		status = domain.OrderStatusRejected
	default:
		// new / replaced / pending transitions carry no state change for us.
		return
	}

	ev := OrderStatusEvent{OrderID: local, Status: status}
	ev.FilledQty = tu.Order.FilledQty.InexactFloat64()
	if tu.Order.Qty != nil {
		ev.RemainingQty = tu.Order.Qty.InexactFloat64() - ev.FilledQty
	}
	if tu.Order.FilledAvgPrice != nil {
		ev.AvgFillPrice = tu.Order.FilledAvgPrice.InexactFloat64()
	}
	g.events <- ev
}

// register assigns the next local id to an Alpaca order id.
func (g *AlpacaGateway) register(remoteID string) int64 {
	id := g.nextID.Add(1)
	g.mu.Lock()
	g.toRemote[id] = remoteID
	g.toLocal[remoteID] = id
	g.mu.Unlock()
	return id
}

func (g *AlpacaGateway) remote(id int64) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	remote, ok := g.toRemote[id]
	return remote, ok
}

func (g *AlpacaGateway) local(remoteID string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.toLocal[remoteID]
	return id, ok
}

func alpacaSide(side domain.OrderSide) alpaca.Side {
	if side == domain.OrderSideSell {
		return alpaca.Sell
	}
	return alpaca.Buy
}

func alpacaType(t domain.OrderType) alpaca.OrderType {
	switch t {
	case domain.OrderTypeLimit:
		return alpaca.Limit
	case domain.OrderTypeStop:
		return alpaca.Stop
	case domain.OrderTypeStopLimit:
		return alpaca.StopLimit
	default:
		return alpaca.Market
	}
}

func decimalPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}
