// Package marketdata exposes the configured feed handlers to strategies
// behind a small facade so strategy code never touches registries directly.
package marketdata

import (
	"fmt"
	"log/slog"

	"helios/internal/connector"
	"helios/internal/domain"
)

// Service routes trade subscriptions to the feed handler registered for a
// given exchange.
type Service struct {
	feeds *connector.Registry[connector.FeedHandler]
	log   *slog.Logger
}

// NewService wraps the feed-handler registry built during engine startup.
func NewService(feeds *connector.Registry[connector.FeedHandler], log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{feeds: feeds, log: log}
}

// SubscribeTrades registers fn for trades in symbol on the named exchange.
// Subscribing against an exchange with no configured feed handler is a
// wiring error surfaced to the caller.
func (s *Service) SubscribeTrades(exchange, symbol string, fn func(domain.Trade)) error {
	fh, err := s.feeds.Get(exchange)
	if err != nil {
		return fmt.Errorf("subscribing %s on %s: %w", symbol, exchange, err)
	}
	fh.SubscribeTrades(symbol, fn)
	s.log.Debug("trade subscription", "exchange", exchange, "symbol", symbol)
	return nil
}

// FeedHandler returns the feed handler registered for exchange.
func (s *Service) FeedHandler(exchange string) (connector.FeedHandler, error) {
	return s.feeds.Get(exchange)
}

// Exchanges lists the exchanges with a configured feed handler, in
// configuration order.
func (s *Service) Exchanges() []string {
	return s.feeds.Keys()
}
