package portfolio

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"marlin/internal/domain"
	"marlin/internal/store"
)

func newTestRebalancer(positions ...domain.Position) *Rebalancer {
	book := store.NewPositionBook()
	for _, p := range positions {
		book.Upsert(p)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRebalancer(book, log)
}

func TestNeedsRebalancing(t *testing.T) {
	r := newTestRebalancer(
		domain.Position{Symbol: "AAPL", MarketValue: 3000},
		domain.Position{Symbol: "MSFT", MarketValue: 7000},
	)

	if !r.NeedsRebalancing(map[string]float64{"AAPL": 0.5}, 0.05) {
		t.Error("NeedsRebalancing = false, want true (AAPL at 0.3 vs target 0.5)")
	}
	if r.NeedsRebalancing(map[string]float64{"AAPL": 0.3, "MSFT": 0.7}, 0.05) {
		t.Error("NeedsRebalancing = true for a portfolio already at target")
	}

	// A deviation exactly equal to the threshold does not trigger.
	if r.NeedsRebalancing(map[string]float64{"AAPL": 0.35}, 0.05) {
		t.Error("NeedsRebalancing = true at the threshold boundary, want false")
	}

	// Symbols missing from the book count as weight 0.
	if !r.NeedsRebalancing(map[string]float64{"GOOG": 0.1}, 0.05) {
		t.Error("NeedsRebalancing = false for an unheld target symbol")
	}
}

func TestGenerateOrdersBuy(t *testing.T) {
	r := newTestRebalancer(
		domain.Position{Symbol: "AAPL", MarketValue: 3000},
		domain.Position{Symbol: "MSFT", MarketValue: 7000},
	)

	orders := r.GenerateOrders(map[string]float64{"AAPL": 0.5})
	if len(orders) != 1 {
		t.Fatalf("GenerateOrders produced %d orders, want 1", len(orders))
	}

	o := orders[0]
	if o.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", o.Symbol)
	}
	if o.Side != domain.OrderSideBuy {
		t.Errorf("Side = %q, want buy", o.Side)
	}
	if o.Type != domain.OrderTypeMarket {
		t.Errorf("Type = %q, want market", o.Type)
	}
	// Target value 5000 against current 3000, sized at $100 per share.
	if math.Abs(o.Qty-20) > 1e-12 {
		t.Errorf("Qty = %v, want 20", o.Qty)
	}
}

func TestGenerateOrdersSell(t *testing.T) {
	r := newTestRebalancer(
		domain.Position{Symbol: "AAPL", MarketValue: 8000},
		domain.Position{Symbol: "MSFT", MarketValue: 2000},
	)

	orders := r.GenerateOrders(map[string]float64{"AAPL": 0.5})
	if len(orders) != 1 {
		t.Fatalf("GenerateOrders produced %d orders, want 1", len(orders))
	}
	if got := orders[0].Side; got != domain.OrderSideSell {
		t.Errorf("Side = %q, want sell", got)
	}
	if got := orders[0].Qty; math.Abs(got-30) > 1e-12 {
		t.Errorf("Qty = %v, want 30", got)
	}
}

func TestGenerateOrdersSkipsSmallDifferences(t *testing.T) {
	r := newTestRebalancer(
		domain.Position{Symbol: "AAPL", MarketValue: 4950},
		domain.Position{Symbol: "MSFT", MarketValue: 5050},
	)

	// AAPL is $50 short of target, below the $100 minimum notional.
	if orders := r.GenerateOrders(map[string]float64{"AAPL": 0.5}); len(orders) != 0 {
		t.Errorf("GenerateOrders produced %d orders, want 0", len(orders))
	}

	// A difference of exactly the minimum notional is also skipped.
	r = newTestRebalancer(
		domain.Position{Symbol: "AAPL", MarketValue: 4900},
		domain.Position{Symbol: "MSFT", MarketValue: 5100},
	)
	if orders := r.GenerateOrders(map[string]float64{"AAPL": 0.5}); len(orders) != 0 {
		t.Errorf("GenerateOrders at the notional boundary produced %d orders, want 0", len(orders))
	}
}

func TestGenerateOrdersMultipleTargets(t *testing.T) {
	r := newTestRebalancer(
		domain.Position{Symbol: "AAPL", MarketValue: 3000},
		domain.Position{Symbol: "MSFT", MarketValue: 7000},
	)

	orders := r.GenerateOrders(map[string]float64{"AAPL": 0.5, "MSFT": 0.5})
	if len(orders) != 2 {
		t.Fatalf("GenerateOrders produced %d orders, want 2", len(orders))
	}

	bySymbol := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		bySymbol[o.Symbol] = o
	}
	if got := bySymbol["AAPL"].Side; got != domain.OrderSideBuy {
		t.Errorf("AAPL side = %q, want buy", got)
	}
	if got := bySymbol["MSFT"].Side; got != domain.OrderSideSell {
		t.Errorf("MSFT side = %q, want sell", got)
	}
}

func TestGenerateOrdersEmptyBook(t *testing.T) {
	r := newTestRebalancer()
	// With no positions the total value is 0, so every target value is 0
	// and no orders are generated.
	if orders := r.GenerateOrders(map[string]float64{"AAPL": 0.5}); len(orders) != 0 {
		t.Errorf("GenerateOrders on an empty book produced %d orders, want 0", len(orders))
	}
}
