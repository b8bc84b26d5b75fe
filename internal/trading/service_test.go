package trading

import (
	"context"
	"errors"
	"testing"

	"helios/internal/connector"
	"helios/internal/domain"
)

func simRegistry(t *testing.T, instanceID string) *connector.Registry[connector.OrderPlacer] {
	t.Helper()
	placers := connector.NewRegistry[connector.OrderPlacer]()
	placer := connector.NewSimOrderPlacer(connector.Deps{}, instanceID)
	key := connector.OrderPlacerKey(connector.ExchangeSim, instanceID)
	if err := placers.Register(key, placer); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	return placers
}

func TestSubmitOrderResolvesInstanceKey(t *testing.T) {
	svc := NewService(simRegistry(t, "prod"), "prod", nil)

	order, err := svc.SubmitOrder(context.Background(), connector.ExchangeSim, &domain.Order{
		Symbol: "BTCUSD",
		Side:   domain.OrderSideBuy,
		Type:   domain.OrderTypeMarket,
		Qty:    1,
	})
	if err != nil {
		t.Fatalf("SubmitOrder() returned error: %v", err)
	}
	if order.Status != domain.OrderStatusFilled {
		t.Errorf("order.Status = %q, want filled", order.Status)
	}
}

func TestSubmitOrderWrongInstance(t *testing.T) {
	// The registry holds sim:prod but the facade is scoped to sandbox.
	svc := NewService(simRegistry(t, "prod"), "sandbox", nil)

	_, err := svc.SubmitOrder(context.Background(), connector.ExchangeSim, &domain.Order{
		Symbol: "BTCUSD",
		Side:   domain.OrderSideBuy,
		Type:   domain.OrderTypeMarket,
		Qty:    1,
	})
	if !errors.Is(err, connector.ErrNotFound) {
		t.Fatalf("SubmitOrder() error = %v, want ErrNotFound", err)
	}
}

func TestCancelOrder(t *testing.T) {
	svc := NewService(simRegistry(t, "prod"), "prod", nil)

	order, err := svc.SubmitOrder(context.Background(), connector.ExchangeSim, &domain.Order{
		Symbol: "ETHUSD",
		Side:   domain.OrderSideSell,
		Type:   domain.OrderTypeLimit,
		Qty:    3,
	})
	if err != nil {
		t.Fatalf("SubmitOrder() returned error: %v", err)
	}
	if err := svc.CancelOrder(context.Background(), connector.ExchangeSim, order.ID); err != nil {
		t.Errorf("CancelOrder() returned error: %v", err)
	}
}
