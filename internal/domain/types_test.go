package domain

import (
	"testing"
	"time"
)

func TestZeroValues(t *testing.T) {
	trade := Trade{}
	if trade.Symbol != "" || trade.Exchange != "" || trade.ID != "" {
		t.Error("expected empty strings for zero-value Trade")
	}
	if trade.Price != 0 || trade.Size != 0 {
		t.Error("expected zero Price/Size for zero-value Trade")
	}
	if !trade.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Trade")
	}

	order := Order{}
	if order.ID != "" || order.Side != "" || order.Type != "" || order.Status != "" {
		t.Error("expected empty enum fields for zero-value Order")
	}
	if order.Qty != 0 || order.FilledQty != 0 || order.FilledAvgPrice != 0 {
		t.Error("expected zero quantities for zero-value Order")
	}
	if !order.CreatedAt.IsZero() || !order.UpdatedAt.IsZero() {
		t.Error("expected zero timestamps for zero-value Order")
	}
}

func TestEnumValues(t *testing.T) {
	if OrderSideBuy != "buy" || OrderSideSell != "sell" {
		t.Error("OrderSide constants have unexpected values")
	}
	if OrderTypeMarket != "market" || OrderTypeLimit != "limit" {
		t.Error("OrderType constants have unexpected values")
	}
	if TimeInForceGTC != "gtc" {
		t.Errorf("TimeInForceGTC = %q, want %q", TimeInForceGTC, "gtc")
	}
}

func TestConstruction(t *testing.T) {
	now := time.Now()
	order := Order{
		ID:          "abc-123",
		Symbol:      "BTCUSD",
		Side:        OrderSideBuy,
		Type:        OrderTypeLimit,
		TimeInForce: TimeInForceGTC,
		Qty:         0.5,
		LimitPrice:  43000,
		Status:      OrderStatusNew,
		CreatedAt:   now,
	}
	if order.Side != OrderSideBuy {
		t.Errorf("order.Side = %q, want %q", order.Side, OrderSideBuy)
	}
	if order.LimitPrice != 43000 {
		t.Errorf("order.LimitPrice = %f, want %f", order.LimitPrice, 43000.0)
	}
}
