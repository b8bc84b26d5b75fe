package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/shopspring/decimal"

	"helios/internal/domain"
	"helios/internal/util"
)

// Compile-time interface checks.
var _ FeedHandler = (*AlpacaFeedHandler)(nil)
var _ OrderPlacer = (*AlpacaOrderPlacer)(nil)

// ---------------------------------------------------------------------------
// AlpacaFeedHandler — real-time trades over the Alpaca WebSocket stream.
// ---------------------------------------------------------------------------

// AlpacaFeedHandler streams US equity trades from the Alpaca market-data
// WebSocket. Credentials and endpoints come from the engine environment
// (ALPACA_API_KEY, ALPACA_API_SECRET, optional ALPACA_STREAM_URL and
// ALPACA_FEED). A feed handler with missing credentials fails inside its own
// connection lifecycle, not at registry-build time.
type AlpacaFeedHandler struct {
	apiKey     string
	apiSecret  string
	streamURL  string
	feed       string
	instanceID string
	subs       *subscriptions
	log        *slog.Logger
}

// NewAlpacaFeedHandler creates an Alpaca feed handler from the engine
// environment.
func NewAlpacaFeedHandler(deps Deps, instanceID string) *AlpacaFeedHandler {
	h := &AlpacaFeedHandler{
		feed:       "iex",
		instanceID: instanceID,
		subs:       newSubscriptions(),
		log:        deps.logger().With("feedhandler", ExchangeAlpaca, "instance", instanceID),
	}
	if deps.Env != nil {
		h.apiKey = deps.Env.Getenv("ALPACA_API_KEY", "")
		h.apiSecret = deps.Env.Getenv("ALPACA_API_SECRET", "")
		h.streamURL = deps.Env.Getenv("ALPACA_STREAM_URL", "")
		h.feed = deps.Env.Getenv("ALPACA_FEED", h.feed)
	}
	return h
}

// Exchange returns "Alpaca".
func (h *AlpacaFeedHandler) Exchange() string { return ExchangeAlpaca }

// SubscribeTrades registers a per-symbol trade handler.
func (h *AlpacaFeedHandler) SubscribeTrades(symbol string, fn TradeHandler) {
	h.subs.subscribe(symbol, fn)
}

// Tap registers a handler for every trade.
func (h *AlpacaFeedHandler) Tap(fn TradeHandler) {
	h.subs.tap(fn)
}

// Start connects to the Alpaca stream and forwards trades to subscribers
// until ctx is cancelled or the stream terminates permanently. The SDK
// handles transport-level reconnects internally.
func (h *AlpacaFeedHandler) Start(ctx context.Context) error {
	initial := h.subs.symbols()
	opts := []stream.StockOption{
		stream.WithCredentials(h.apiKey, h.apiSecret),
		stream.WithTrades(h.onTrade, initial...),
	}
	if h.streamURL != "" {
		opts = append(opts, stream.WithBaseURL(h.streamURL))
	}

	// The SDK allows Connect once per client, so each retry builds a fresh one.
	var client *stream.StocksClient
	err := util.Retry(ctx, 3, time.Second, func() error {
		client = stream.NewStocksClient(h.feed, opts...)
		return client.Connect(ctx)
	})
	if err != nil {
		return fmt.Errorf("alpaca stream connect: %w", err)
	}
	h.log.Info("connected", "feed", h.feed)

	// Symbols subscribed after connect are forwarded to the live client.
	// SubscribeToTrades blocks on the server ack, so it runs off the
	// subscriber's goroutine.
	subscribe := func(symbol string) {
		go func() {
			if err := client.SubscribeToTrades(h.onTrade, symbol); err != nil {
				h.log.Warn("late trade subscription failed", "symbol", symbol, "err", err)
			}
		}()
	}
	h.subs.setListener(subscribe)
	defer h.subs.setListener(nil)

	// Catch symbols subscribed while the connection was being established.
	wired := make(map[string]struct{}, len(initial))
	for _, symbol := range initial {
		wired[symbol] = struct{}{}
	}
	for _, symbol := range h.subs.symbols() {
		if _, ok := wired[symbol]; !ok {
			subscribe(symbol)
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-client.Terminated():
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("alpaca stream terminated: %w", err)
		}
		return nil
	}
}

func (h *AlpacaFeedHandler) onTrade(t stream.Trade) {
	h.subs.dispatch(domain.Trade{
		Symbol:    t.Symbol,
		Timestamp: tradeTimestamp(t.Timestamp),
		Price:     t.Price,
		Size:      float64(t.Size),
		Exchange:  ExchangeAlpaca,
		ID:        fmt.Sprintf("%d", t.ID),
	})
}

// ---------------------------------------------------------------------------
// AlpacaOrderPlacer — order routing through the Alpaca trading API.
// ---------------------------------------------------------------------------

// AlpacaOrderPlacer submits orders through the Alpaca trading REST API.
type AlpacaOrderPlacer struct {
	client     *alpaca.Client
	instanceID string
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewAlpacaOrderPlacer creates an Alpaca order placer. ALPACA_API_KEY and
// ALPACA_API_SECRET must resolve in the engine environment; a missing key is
// a fatal configuration error surfaced before startup proceeds.
func NewAlpacaOrderPlacer(deps Deps, instanceID string) (OrderPlacer, error) {
	apiKey, err := requireCredential(deps.Env, "ALPACA_API_KEY")
	if err != nil {
		return nil, err
	}
	apiSecret, err := requireCredential(deps.Env, "ALPACA_API_SECRET")
	if err != nil {
		return nil, err
	}

	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if deps.Env != nil {
		opts.BaseURL = deps.Env.Getenv("ALPACA_BASE_URL", "")
	}

	return &AlpacaOrderPlacer{
		client:     alpaca.NewClient(opts),
		instanceID: instanceID,
		limiter:    util.NewRateLimiter(200),
		log:        deps.logger().With("orderplacer", ExchangeAlpaca, "instance", instanceID),
	}, nil
}

// Exchange returns "Alpaca".
func (p *AlpacaOrderPlacer) Exchange() string { return ExchangeAlpaca }

// SubmitOrder sends the order to Alpaca and maps the accepted order back into
// the domain representation.
func (p *AlpacaOrderPlacer) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	qty := decimal.NewFromFloat(order.Qty)
	req := alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(order.Side),
		Type:          alpaca.OrderType(order.Type),
		TimeInForce:   alpaca.TimeInForce(order.TimeInForce),
		ClientOrderID: order.ClientOrderID,
	}
	if order.Type == domain.OrderTypeLimit {
		limit := decimal.NewFromFloat(order.LimitPrice)
		req.LimitPrice = &limit
	}

	placed, err := p.client.PlaceOrder(req)
	if err != nil {
		return nil, fmt.Errorf("alpaca place order %s %s: %w", order.Side, order.Symbol, err)
	}

	accepted := *order
	accepted.ID = placed.ID
	accepted.Status = mapAlpacaStatus(placed.Status)
	accepted.FilledQty = placed.FilledQty.InexactFloat64()
	if placed.FilledAvgPrice != nil {
		accepted.FilledAvgPrice = placed.FilledAvgPrice.InexactFloat64()
	}
	accepted.CreatedAt = placed.CreatedAt
	accepted.UpdatedAt = placed.UpdatedAt

	p.log.Info("order submitted",
		"id", accepted.ID,
		"symbol", accepted.Symbol,
		"side", accepted.Side,
		"qty", accepted.Qty,
		"status", accepted.Status,
	)
	return &accepted, nil
}

// CancelOrder requests cancellation of an open order.
func (p *AlpacaOrderPlacer) CancelOrder(ctx context.Context, orderID string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := p.client.CancelOrder(orderID); err != nil {
		return fmt.Errorf("alpaca cancel order %s: %w", orderID, err)
	}
	return nil
}

func mapAlpacaStatus(status string) domain.OrderStatus {
	switch status {
	case "new", "accepted", "pending_new":
		return domain.OrderStatusAccepted
	case "filled":
		return domain.OrderStatusFilled
	case "partially_filled":
		return domain.OrderStatusAccepted
	case "canceled", "pending_cancel":
		return domain.OrderStatusCancelled
	case "rejected":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatus(status)
	}
}

// tradeTimestamp guards against zero timestamps from the stream.
func tradeTimestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
