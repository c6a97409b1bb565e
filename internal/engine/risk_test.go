package engine

import (
	"errors"
	"testing"

	"marlin/internal/domain"
)

func TestRiskManagerNotionalLimit(t *testing.T) {
	rm := NewRiskManager(10000, 1000)

	ok := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Qty: 50, LimitPrice: 100}
	if err := rm.CheckOrder(ok, 0); err != nil {
		t.Errorf("CheckOrder(notional 5000) = %v, want nil", err)
	}

	// Exactly at the limit passes; the comparison is strict.
	boundary := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Qty: 100, LimitPrice: 100}
	if err := rm.CheckOrder(boundary, 0); err != nil {
		t.Errorf("CheckOrder(notional 10000) = %v, want nil", err)
	}

	over := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Qty: 101, LimitPrice: 100}
	err := rm.CheckOrder(over, 0)
	var riskErr *RiskError
	if !errors.As(err, &riskErr) {
		t.Errorf("CheckOrder(notional 10100) = %v, want *RiskError", err)
	}
}

func TestRiskManagerMarketOrderSkipsNotional(t *testing.T) {
	rm := NewRiskManager(10000, 1000)

	// Market orders carry no reference price, so the notional check always
	// passes regardless of quantity.
	o := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Qty: 1e9}
	if err := rm.CheckOrder(o, 0); err != nil {
		t.Errorf("CheckOrder(market) = %v, want nil", err)
	}
}

func TestRiskManagerStopOrderUsesStopPrice(t *testing.T) {
	rm := NewRiskManager(10000, 1000)

	o := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeStop, Side: domain.OrderSideSell, Qty: 200, StopPrice: 100}
	err := rm.CheckOrder(o, 0)
	var riskErr *RiskError
	if !errors.As(err, &riskErr) {
		t.Errorf("CheckOrder(stop notional 20000) = %v, want *RiskError", err)
	}
}

func TestRiskManagerDailyLossLimit(t *testing.T) {
	rm := NewRiskManager(10000, 1000)
	o := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Qty: 1, LimitPrice: 10}

	if err := rm.CheckOrder(o, -1000); err != nil {
		t.Errorf("CheckOrder(dailyPnL -1000) = %v, want nil (boundary not breached)", err)
	}

	err := rm.CheckOrder(o, -1000.01)
	var riskErr *RiskError
	if !errors.As(err, &riskErr) {
		t.Errorf("CheckOrder(dailyPnL -1000.01) = %v, want *RiskError", err)
	}
}

func TestRiskManagerSetters(t *testing.T) {
	rm := NewRiskManager(10000, 1000)
	rm.SetMaxPositionSize(500)
	rm.SetMaxDailyLoss(50)

	if got := rm.MaxPositionSize(); got != 500 {
		t.Errorf("MaxPositionSize() = %v, want 500", got)
	}
	if got := rm.MaxDailyLoss(); got != 50 {
		t.Errorf("MaxDailyLoss() = %v, want 50", got)
	}

	o := &domain.Order{Symbol: "AAPL", Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Qty: 10, LimitPrice: 100}
	if err := rm.CheckOrder(o, 0); err == nil {
		t.Error("CheckOrder should fail after tightening the notional limit")
	}
}
