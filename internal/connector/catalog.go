package connector

import (
	"fmt"
	"strings"

	"helios/internal/config"
)

// Supported exchange identifiers. The catalogue is closed: a configuration
// entry naming anything else is a fatal startup error, never a silent skip.
const (
	ExchangeAlpaca = "Alpaca"
	ExchangePhemex = "Phemex"
	ExchangeSim    = "Sim"
)

// feedHandlerCatalog maps each supported exchange to its feed-handler
// constructor.
var feedHandlerCatalog = map[string]func(deps Deps, instanceID string) FeedHandler{
	ExchangeAlpaca: func(deps Deps, instanceID string) FeedHandler {
		return NewAlpacaFeedHandler(deps, instanceID)
	},
	ExchangePhemex: func(deps Deps, instanceID string) FeedHandler {
		return NewPhemexFeedHandler(deps, instanceID)
	},
	ExchangeSim: func(deps Deps, instanceID string) FeedHandler {
		return NewSimFeedHandler(deps, instanceID)
	},
}

// orderPlacerCatalog maps each supported exchange to its order-placer
// constructor. Constructors resolve credentials from the engine environment
// and fail when a required key is absent.
var orderPlacerCatalog = map[string]func(deps Deps, instanceID string) (OrderPlacer, error){
	ExchangeAlpaca: NewAlpacaOrderPlacer,
	ExchangePhemex: NewPhemexOrderPlacer,
	ExchangeSim: func(deps Deps, instanceID string) (OrderPlacer, error) {
		return NewSimOrderPlacer(deps, instanceID), nil
	},
}

// BuildFeedHandlers constructs the feed-handler registry from configuration
// declarations, in document order. An unrecognized exchange aborts the build
// before any connector is started, so a partial registry is never launched.
func BuildFeedHandlers(decls []config.ConnectorDecl, deps Deps, instanceID string) (*Registry[FeedHandler], error) {
	registry := NewRegistry[FeedHandler]()
	for _, decl := range decls {
		ctor, ok := feedHandlerCatalog[decl.Exchange]
		if !ok {
			return nil, fmt.Errorf("%w: feedhandler %q", ErrUnsupportedExchange, decl.Exchange)
		}
		if err := registry.Register(decl.Exchange, ctor(deps, instanceID)); err != nil {
			return nil, fmt.Errorf("registering feedhandler %q: %w", decl.Exchange, err)
		}
	}
	return registry, nil
}

// BuildOrderPlacers constructs the order-placer registry from configuration
// declarations, in document order. Placers are keyed by the
// exchange:instance composite so multiple deployments of one exchange can
// coexist. Credential resolution happens here, before anything starts.
func BuildOrderPlacers(decls []config.ConnectorDecl, deps Deps, instanceID string) (*Registry[OrderPlacer], error) {
	registry := NewRegistry[OrderPlacer]()
	for _, decl := range decls {
		ctor, ok := orderPlacerCatalog[decl.Exchange]
		if !ok {
			return nil, fmt.Errorf("%w: order placer %q", ErrUnsupportedExchange, decl.Exchange)
		}
		placer, err := ctor(deps, instanceID)
		if err != nil {
			return nil, fmt.Errorf("building order placer %q: %w", decl.Exchange, err)
		}
		key := OrderPlacerKey(decl.Exchange, instanceID)
		if err := registry.Register(key, placer); err != nil {
			return nil, fmt.Errorf("registering order placer %q: %w", key, err)
		}
	}
	return registry, nil
}

// OrderPlacerKey builds the exchange:instance composite registry key.
func OrderPlacerKey(exchange, instanceID string) string {
	return strings.ToLower(exchange) + ":" + instanceID
}

// requireCredential resolves a credential key from the engine environment,
// failing when it is absent or empty.
func requireCredential(env *config.Environment, key string) (string, error) {
	if v := env.Getenv(key, ""); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingCredential, key)
}
