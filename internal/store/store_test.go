package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"marlin/internal/domain"
)

func TestOrderStoreUpsertGet(t *testing.T) {
	s := NewOrderStore()

	o := domain.Order{
		ID:         1001,
		Symbol:     "AAPL",
		Type:       domain.OrderTypeLimit,
		Side:       domain.OrderSideBuy,
		Qty:        10,
		LimitPrice: 185.5,
		Status:     domain.OrderStatusSubmitted,
		CreatedAt:  time.Now(),
	}
	s.Upsert(o)

	got, ok := s.Get(1001)
	if !ok {
		t.Fatal("Get(1001) not found after Upsert")
	}
	if got != o {
		t.Errorf("Get(1001) = %+v, want %+v", got, o)
	}

	// Mutating the returned copy must not affect stored state.
	got.Qty = 999
	got.Status = domain.OrderStatusFilled
	again, _ := s.Get(1001)
	if again.Qty != 10 || again.Status != domain.OrderStatusSubmitted {
		t.Error("mutating a returned copy changed stored state")
	}
}

func TestOrderStoreGetAbsent(t *testing.T) {
	s := NewOrderStore()
	got, ok := s.Get(42)
	if ok {
		t.Error("Get on empty store reported found")
	}
	if got.ID != 0 || got.Symbol != "" {
		t.Errorf("absent id should yield zero-valued Order, got %+v", got)
	}
}

func TestOrderStoreFilters(t *testing.T) {
	s := NewOrderStore()
	s.Upsert(domain.Order{ID: 1, Symbol: "AAPL", Status: domain.OrderStatusSubmitted})
	s.Upsert(domain.Order{ID: 2, Symbol: "MSFT", Status: domain.OrderStatusFilled})
	s.Upsert(domain.Order{ID: 3, Symbol: "AAPL", Status: domain.OrderStatusFilled})

	if got := len(s.All()); got != 3 {
		t.Errorf("All() returned %d orders, want 3", got)
	}
	if got := len(s.BySymbol("AAPL")); got != 2 {
		t.Errorf("BySymbol(AAPL) returned %d orders, want 2", got)
	}
	if got := len(s.ByStatus(domain.OrderStatusFilled)); got != 2 {
		t.Errorf("ByStatus(filled) returned %d orders, want 2", got)
	}
	if got := len(s.BySymbol("TSLA")); got != 0 {
		t.Errorf("BySymbol(TSLA) returned %d orders, want 0", got)
	}
}

func TestOrderStoreTransition(t *testing.T) {
	s := NewOrderStore()
	s.Upsert(domain.Order{ID: 7, Symbol: "AAPL", Status: domain.OrderStatusSubmitted})

	o, ok := s.Transition(7, domain.OrderStatusFilled)
	if !ok {
		t.Fatal("Transition(7) reported unknown id")
	}
	if o.Status != domain.OrderStatusFilled {
		t.Errorf("Transition returned status %q, want %q", o.Status, domain.OrderStatusFilled)
	}

	if _, ok := s.Transition(99, domain.OrderStatusCancelled); ok {
		t.Error("Transition on unknown id reported success")
	}
}

func TestOrderStoreReplacePreservesID(t *testing.T) {
	s := NewOrderStore()
	s.Upsert(domain.Order{ID: 5, Symbol: "AAPL", Qty: 10, Status: domain.OrderStatusSubmitted})

	if ok := s.Replace(5, domain.Order{Symbol: "AAPL", Qty: 20, Status: domain.OrderStatusSubmitted}); !ok {
		t.Fatal("Replace(5) reported unknown id")
	}
	got, _ := s.Get(5)
	if got.ID != 5 {
		t.Errorf("Replace changed order id to %d, want 5", got.ID)
	}
	if got.Qty != 20 {
		t.Errorf("Replace kept Qty %v, want 20", got.Qty)
	}

	if ok := s.Replace(99, domain.Order{Symbol: "MSFT"}); ok {
		t.Error("Replace on unknown id reported success")
	}
}

func TestOrderStoreTerminalRecordsAreImmutable(t *testing.T) {
	s := NewOrderStore()
	s.Upsert(domain.Order{ID: 3, Symbol: "AAPL", Qty: 10, Status: domain.OrderStatusFilled})

	if _, ok := s.Transition(3, domain.OrderStatusCancelled); ok {
		t.Error("Transition overwrote a filled order")
	}
	if ok := s.Replace(3, domain.Order{Symbol: "AAPL", Qty: 20, Status: domain.OrderStatusSubmitted}); ok {
		t.Error("Replace overwrote a filled order")
	}
	if _, ok := s.Complete(3, domain.OrderStatusCancelled, 0, 0); ok {
		t.Error("Complete overwrote a filled order")
	}

	got, _ := s.Get(3)
	if got.Status != domain.OrderStatusFilled || got.Qty != 10 {
		t.Errorf("terminal order mutated: %+v", got)
	}
}

func TestOrderStoreComplete(t *testing.T) {
	s := NewOrderStore()
	s.Upsert(domain.Order{ID: 4, Symbol: "AAPL", Qty: 10, Status: domain.OrderStatusSubmitted})

	o, ok := s.Complete(4, domain.OrderStatusFilled, 10, 185.5)
	if !ok {
		t.Fatal("Complete(4) reported unknown id")
	}
	if o.Status != domain.OrderStatusFilled || o.FilledQty != 10 || o.FilledAvgPrice != 185.5 {
		t.Errorf("Complete returned %+v", o)
	}
	if o.UpdatedAt.IsZero() {
		t.Error("Complete left UpdatedAt zero")
	}

	if _, ok := s.Complete(99, domain.OrderStatusFilled, 1, 1); ok {
		t.Error("Complete on unknown id reported success")
	}
}

func TestPositionBookTotals(t *testing.T) {
	b := NewPositionBook()

	// Empty book sums to zero.
	if got := b.TotalMarketValue(); got != 0 {
		t.Errorf("empty TotalMarketValue() = %v, want 0", got)
	}

	b.Upsert(domain.Position{Symbol: "AAPL", Qty: 100, MarketValue: 18500, UnrealizedPnL: 250, RealizedPnL: 50})
	if got := b.TotalMarketValue(); got != 18500 {
		t.Errorf("TotalMarketValue() = %v, want 18500", got)
	}

	b.Upsert(domain.Position{Symbol: "MSFT", Qty: 50, MarketValue: 20000, UnrealizedPnL: -100, RealizedPnL: 0})
	if got := b.TotalMarketValue(); got != 38500 {
		t.Errorf("TotalMarketValue() = %v, want 38500", got)
	}
	if got := b.TotalUnrealizedPnL(); got != 150 {
		t.Errorf("TotalUnrealizedPnL() = %v, want 150", got)
	}
	if got := b.TotalRealizedPnL(); got != 50 {
		t.Errorf("TotalRealizedPnL() = %v, want 50", got)
	}

	// Duplicate symbol overwrite: last write wins, no double counting.
	b.Upsert(domain.Position{Symbol: "AAPL", Qty: 100, MarketValue: 19000, UnrealizedPnL: 750, RealizedPnL: 50})
	if got := b.TotalMarketValue(); got != 39000 {
		t.Errorf("TotalMarketValue() after overwrite = %v, want 39000", got)
	}
	if got := b.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestPositionBookGetAbsent(t *testing.T) {
	b := NewPositionBook()
	got := b.Get("TSLA")
	if got.Symbol != "" || got.Qty != 0 {
		t.Errorf("absent symbol should yield zero-valued Position, got %+v", got)
	}
}

func TestPositionBookRemove(t *testing.T) {
	b := NewPositionBook()
	b.Upsert(domain.Position{Symbol: "AAPL", MarketValue: 100})
	b.Remove("AAPL")
	if got := b.Len(); got != 0 {
		t.Errorf("Len() after Remove = %d, want 0", got)
	}
	if got := b.TotalMarketValue(); got != 0 {
		t.Errorf("TotalMarketValue() after Remove = %v, want 0", got)
	}
}

func TestSQLiteStoreReturns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "marlin.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	days := []ReturnRecord{
		{Date: time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC), Return: 0.01, PortfolioValue: 101000},
		{Date: time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC), Return: -0.02, PortfolioValue: 98980},
		{Date: time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), Return: 0.005, PortfolioValue: 99475},
	}
	for _, d := range days {
		if err := s.SaveReturn(ctx, d); err != nil {
			t.Fatalf("SaveReturn: %v", err)
		}
	}

	got, err := s.RecentReturns(ctx, 252)
	if err != nil {
		t.Fatalf("RecentReturns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentReturns returned %d records, want 3", len(got))
	}
	// Chronological order, oldest first.
	if !got[0].Date.Equal(days[0].Date) || got[0].Return != 0.01 {
		t.Errorf("first record = %+v, want %+v", got[0], days[0])
	}
	if !got[2].Date.Equal(days[2].Date) {
		t.Errorf("last record date = %v, want %v", got[2].Date, days[2].Date)
	}

	// Same-day save overwrites rather than duplicating.
	if err := s.SaveReturn(ctx, ReturnRecord{Date: days[2].Date, Return: 0.006, PortfolioValue: 99575}); err != nil {
		t.Fatalf("SaveReturn (overwrite): %v", err)
	}
	got, err = s.RecentReturns(ctx, 252)
	if err != nil {
		t.Fatalf("RecentReturns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentReturns after overwrite returned %d records, want 3", len(got))
	}
	if got[2].Return != 0.006 {
		t.Errorf("overwritten return = %v, want 0.006", got[2].Return)
	}

	// Limit applies to the most recent records.
	got, err = s.RecentReturns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentReturns(2): %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentReturns(2) returned %d records, want 2", len(got))
	}
	if !got[0].Date.Equal(days[1].Date) {
		t.Errorf("RecentReturns(2) first date = %v, want %v", got[0].Date, days[1].Date)
	}
}

func TestParquetStoreWriteReadReturns(t *testing.T) {
	ps := NewParquetStore(t.TempDir())

	records := []ReturnRecord{
		{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Return: 0.012, PortfolioValue: 101200},
		{Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), Return: -0.004, PortfolioValue: 100795},
	}
	if err := ps.WriteReturns(records); err != nil {
		t.Fatalf("WriteReturns: %v", err)
	}

	// Second write for the same year merges rather than overwriting.
	more := []ReturnRecord{
		{Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Return: 0.002, PortfolioValue: 100997},
	}
	if err := ps.WriteReturns(more); err != nil {
		t.Fatalf("WriteReturns (merge): %v", err)
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadReturns(start, end)
	if err != nil {
		t.Fatalf("ReadReturns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadReturns returned %d records, want 3", len(got))
	}
	if got[0].Return != 0.012 || got[2].Return != 0.002 {
		t.Errorf("ReadReturns order wrong: %+v", got)
	}
}

func TestParquetStoreReturnPath(t *testing.T) {
	ps := NewParquetStore("/data")
	want := filepath.Join("/data", "performance", "returns", "2025.parquet")
	if got := ps.returnPath(2025); got != want {
		t.Errorf("returnPath(2025) = %s, want %s", got, want)
	}
}
