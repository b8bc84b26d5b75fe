// Package connector defines the feed-handler and order-placer contracts, the
// exchange-keyed registries that hold live connector instances, and the
// static catalogue of supported exchanges.
package connector

import (
	"context"
	"errors"
	"log/slog"

	"helios/internal/config"
	"helios/internal/domain"
	"helios/internal/instrument"
	"helios/internal/scheduler"
)

var (
	// ErrDuplicateKey is returned when a registry key is registered twice.
	ErrDuplicateKey = errors.New("duplicate registry key")
	// ErrNotFound is returned when a registry lookup misses.
	ErrNotFound = errors.New("connector not found")
	// ErrUnsupportedExchange is returned when a configuration entry names an
	// exchange outside the supported catalogue.
	ErrUnsupportedExchange = errors.New("unsupported exchange")
	// ErrMissingCredential is returned when a required credential key
	// resolves to an absent value at registry-build time.
	ErrMissingCredential = errors.New("missing credential")
)

// TradeHandler consumes trades delivered by a feed handler.
type TradeHandler func(domain.Trade)

// FeedHandler ingests market data from one exchange and republishes it to
// subscribers. Each feed handler manages its own connection lifecycle,
// including reconnects; Start blocks until the context is cancelled or the
// handler fails permanently.
type FeedHandler interface {
	// Exchange returns the exchange identifier this handler serves.
	Exchange() string

	// Start begins the connection/streaming procedure.
	Start(ctx context.Context) error

	// SubscribeTrades registers a handler for trades on one symbol.
	// Subscriptions may be added before or after Start.
	SubscribeTrades(symbol string, fn TradeHandler)

	// Tap registers a handler invoked for every trade regardless of symbol.
	Tap(fn TradeHandler)
}

// OrderPlacer submits and manages orders against one exchange's trading API.
type OrderPlacer interface {
	// Exchange returns the exchange identifier this placer serves.
	Exchange() string

	// SubmitOrder sends an order for execution and returns the accepted
	// order with its exchange-assigned ID and status.
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error
}

// Deps are the shared collaborators handed to every connector constructor.
type Deps struct {
	Scheduler   *scheduler.Scheduler
	Instruments *instrument.Cache
	Env         *config.Environment
	Log         *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
