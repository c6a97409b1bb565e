// Package engine coordinates order management, position tracking, and
// portfolio risk across the trading core. The Engine consumes the broker
// gateway's push events and exposes portfolio and risk accessors to the
// strategy layer.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"marlin/internal/broker"
	"marlin/internal/domain"
	"marlin/internal/portfolio"
	"marlin/internal/store"
)

// ReturnJournal persists daily return records across restarts. Implemented
// by store.SQLiteStore; nil disables persistence.
type ReturnJournal interface {
	SaveReturn(ctx context.Context, rec store.ReturnRecord) error
	RecentReturns(ctx context.Context, limit int) ([]store.ReturnRecord, error)
}

// Engine wires the order manager, position book, and performance tracker
// together and runs the gateway event loop.
type Engine struct {
	gateway    broker.Gateway
	manager    *OrderManager
	book       *store.PositionBook
	perf       *portfolio.Tracker
	rebalancer *portfolio.Rebalancer
	journal    ReturnJournal
	log        *slog.Logger

	mu           sync.RWMutex
	initialValue float64
	lastValue    float64
	cash         float64
}

// NewEngine creates an Engine. initialValue is the baseline portfolio value
// used for total-return calculations; journal may be nil.
func NewEngine(
	gateway broker.Gateway,
	manager *OrderManager,
	book *store.PositionBook,
	perf *portfolio.Tracker,
	journal ReturnJournal,
	initialValue float64,
	log *slog.Logger,
) *Engine {
	return &Engine{
		gateway:    gateway,
		manager:    manager,
		book:       book,
		perf:       perf,
		rebalancer: portfolio.NewRebalancer(book, log),
		journal:    journal,
		log:        log.With("component", "engine"),

		initialValue: initialValue,
		lastValue:    initialValue,
	}
}

// Manager returns the order manager for direct order placement.
func (e *Engine) Manager() *OrderManager { return e.manager }

// Book returns the position book.
func (e *Engine) Book() *store.PositionBook { return e.book }

// SeedFromJournal replays the most recent persisted daily returns into the
// performance tracker. Call once at startup, before Run.
func (e *Engine) SeedFromJournal(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	records, err := e.journal.RecentReturns(ctx, portfolio.DefaultWindow)
	if err != nil {
		return err
	}
	for _, rec := range records {
		e.perf.Record(rec.Return)
	}
	if n := len(records); n > 0 {
		e.mu.Lock()
		e.lastValue = records[n-1].PortfolioValue
		e.mu.Unlock()
		e.log.Info("performance history seeded", "samples", n)
	}
	return nil
}

// Run consumes gateway events until the context is cancelled or the event
// channel closes. Events for the same order id arrive in send order.
func (e *Engine) Run(ctx context.Context) error {
	events := e.gateway.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.dispatch(ev)
		}
	}
}

func (e *Engine) dispatch(ev broker.Event) {
	switch ev := ev.(type) {
	case broker.OrderStatusEvent:
		e.manager.ApplyStatus(ev)
	case broker.PositionEvent:
		e.applyPosition(ev)
	case broker.AccountEvent:
		e.applyAccountValue(ev)
	}
}

// applyPosition replaces the book entry wholesale and feeds the realized
// P&L delta into the daily counter read by the risk checks.
func (e *Engine) applyPosition(ev broker.PositionEvent) {
	previous := e.book.Get(ev.Symbol)
	next := domain.Position{
		Symbol:        ev.Symbol,
		Qty:           ev.Qty,
		AvgEntryPrice: ev.AvgPrice,
		MarketValue:   ev.MarketValue,
		UnrealizedPnL: ev.UnrealizedPnL,
		RealizedPnL:   ev.RealizedPnL,
	}
	e.book.Upsert(next)

	if delta := next.RealizedPnL - previous.RealizedPnL; delta != 0 {
		e.manager.AddDailyPnL(delta)
	}
	e.log.Debug("position updated", "symbol", ev.Symbol, "qty", ev.Qty)
}

func (e *Engine) applyAccountValue(ev broker.AccountEvent) {
	switch ev.Key {
	case "CashBalance", "TotalCashValue":
		e.mu.Lock()
		e.cash = ev.Value
		e.mu.Unlock()
	}
}

// ---------------------------------------------------------------------------
// Portfolio accessors
// ---------------------------------------------------------------------------

// TotalPortfolioValue is the sum of position market values.
func (e *Engine) TotalPortfolioValue() float64 { return e.book.TotalMarketValue() }

// TotalUnrealizedPnL is the sum of position unrealized P&L.
func (e *Engine) TotalUnrealizedPnL() float64 { return e.book.TotalUnrealizedPnL() }

// TotalRealizedPnL is the sum of position realized P&L.
func (e *Engine) TotalRealizedPnL() float64 { return e.book.TotalRealizedPnL() }

// PortfolioReturn is the total return against the initial baseline value.
func (e *Engine) PortfolioReturn() float64 {
	e.mu.RLock()
	baseline := e.initialValue
	e.mu.RUnlock()
	return portfolio.PortfolioReturn(e.TotalPortfolioValue(), baseline)
}

// SharpeRatio is computed over the tracked daily returns.
func (e *Engine) SharpeRatio() float64 {
	return portfolio.SharpeRatio(e.perf.Returns())
}

// ValueAtRisk at the given confidence level over the tracked returns.
func (e *Engine) ValueAtRisk(confidence float64) float64 {
	return portfolio.ValueAtRisk(e.perf.Returns(), confidence)
}

// MaxDrawdown over the tracked returns.
func (e *Engine) MaxDrawdown() float64 {
	return portfolio.MaxDrawdown(e.perf.Returns())
}

// AssetAllocation is each symbol's weight of the total portfolio value.
func (e *Engine) AssetAllocation() map[string]float64 {
	return portfolio.AssetAllocation(e.book.All())
}

// CashAllocation is the externally reported cash balance divided by cash
// plus position value. Before any account push arrives it is 0.
func (e *Engine) CashAllocation() float64 {
	e.mu.RLock()
	cash := e.cash
	e.mu.RUnlock()
	return portfolio.CashAllocation(cash, e.TotalPortfolioValue())
}

// PortfolioBeta is a fixed placeholder value.
func (e *Engine) PortfolioBeta() float64 { return portfolio.Beta() }

// DailyReturns returns the chronological return history.
func (e *Engine) DailyReturns() []float64 { return e.perf.Returns() }

// RecordDailyReturn computes the period return against the last recorded
// portfolio value, stores it in the tracker, and persists it to the journal
// when one is configured.
func (e *Engine) RecordDailyReturn(ctx context.Context, asOf time.Time) error {
	value := e.TotalPortfolioValue()

	e.mu.Lock()
	prev := e.lastValue
	e.lastValue = value
	e.mu.Unlock()

	var r float64
	if prev != 0 {
		r = (value - prev) / prev
	}
	e.perf.Record(r)
	e.log.Info("daily return recorded", "return", r, "portfolioValue", value)

	if e.journal == nil {
		return nil
	}
	return e.journal.SaveReturn(ctx, store.ReturnRecord{Date: asOf, Return: r, PortfolioValue: value})
}

// ---------------------------------------------------------------------------
// Rebalancing
// ---------------------------------------------------------------------------

// NeedsRebalancing reports whether the current allocation deviates from the
// target by strictly more than threshold for any target symbol.
func (e *Engine) NeedsRebalancing(target map[string]float64, threshold float64) bool {
	return e.rebalancer.NeedsRebalancing(target, threshold)
}

// GenerateRebalancingOrders returns the corrective market-order drafts for
// the target allocation without submitting them.
func (e *Engine) GenerateRebalancingOrders(target map[string]float64) []domain.Order {
	return e.rebalancer.GenerateOrders(target)
}

// Rebalance generates the corrective drafts and submits each through the
// normal order lifecycle, returning the accepted order ids. Submission
// stops at the first gateway connectivity failure; validation and risk
// rejections of individual drafts are logged and skipped.
func (e *Engine) Rebalance(ctx context.Context, target map[string]float64) ([]int64, error) {
	drafts := e.rebalancer.GenerateOrders(target)
	ids := make([]int64, 0, len(drafts))
	for _, draft := range drafts {
		id, err := e.manager.Submit(ctx, draft)
		if err != nil {
			if errors.Is(err, broker.ErrNotConnected) {
				return ids, err
			}
			e.log.Warn("rebalancing draft rejected", "symbol", draft.Symbol, "err", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
