// Package trading exposes the configured order placers to strategies behind
// an instance-scoped facade. Strategies name an exchange; the facade resolves
// the composite exchange:instance key used by the registry.
package trading

import (
	"context"
	"fmt"
	"log/slog"

	"helios/internal/connector"
	"helios/internal/domain"
)

// Service routes orders to the order placer registered for a given exchange
// in the engine's configured instance.
type Service struct {
	placers    *connector.Registry[connector.OrderPlacer]
	instanceID string
	log        *slog.Logger
}

// NewService wraps the order-placer registry built during engine startup.
func NewService(placers *connector.Registry[connector.OrderPlacer], instanceID string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{placers: placers, instanceID: instanceID, log: log}
}

// OrderPlacer returns the order placer for exchange in this instance.
func (s *Service) OrderPlacer(exchange string) (connector.OrderPlacer, error) {
	placer, err := s.placers.Get(connector.OrderPlacerKey(exchange, s.instanceID))
	if err != nil {
		return nil, fmt.Errorf("order placer for %s/%s: %w", exchange, s.instanceID, err)
	}
	return placer, nil
}

// SubmitOrder resolves the exchange's order placer and submits the order.
func (s *Service) SubmitOrder(ctx context.Context, exchange string, order *domain.Order) (*domain.Order, error) {
	placer, err := s.OrderPlacer(exchange)
	if err != nil {
		return nil, err
	}
	return placer.SubmitOrder(ctx, order)
}

// CancelOrder resolves the exchange's order placer and cancels the order.
func (s *Service) CancelOrder(ctx context.Context, exchange, orderID string) error {
	placer, err := s.OrderPlacer(exchange)
	if err != nil {
		return err
	}
	return placer.CancelOrder(ctx, orderID)
}
