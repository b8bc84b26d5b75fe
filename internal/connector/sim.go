package connector

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"helios/internal/domain"
)

// Compile-time interface checks.
var _ FeedHandler = (*SimFeedHandler)(nil)
var _ OrderPlacer = (*SimOrderPlacer)(nil)

// ---------------------------------------------------------------------------
// SimFeedHandler — synthetic market data for paper trading and tests.
// ---------------------------------------------------------------------------

// SimFeedHandler publishes random-walk trades for the instruments listed on
// the "sim" exchange in the instrument cache, plus any symbols declared via
// the SIM_SYMBOLS environment key (comma-separated). It needs no network and
// connects instantly.
type SimFeedHandler struct {
	deps       Deps
	instanceID string
	subs       *subscriptions
	interval   time.Duration
	log        *slog.Logger

	mu     sync.Mutex
	prices map[string]float64
	nextID int64
}

// NewSimFeedHandler creates a simulated feed handler.
func NewSimFeedHandler(deps Deps, instanceID string) *SimFeedHandler {
	interval := 100 * time.Millisecond
	if deps.Env != nil {
		if ms, err := strconv.Atoi(deps.Env.Getenv("SIM_TICK_INTERVAL_MS", "")); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}
	return &SimFeedHandler{
		deps:       deps,
		instanceID: instanceID,
		subs:       newSubscriptions(),
		interval:   interval,
		log:        deps.logger().With("feedhandler", ExchangeSim, "instance", instanceID),
		prices:     make(map[string]float64),
	}
}

// Exchange returns "Sim".
func (h *SimFeedHandler) Exchange() string { return ExchangeSim }

// SubscribeTrades registers a per-symbol trade handler.
func (h *SimFeedHandler) SubscribeTrades(symbol string, fn TradeHandler) {
	h.subs.subscribe(symbol, fn)
}

// Tap registers a handler for every trade.
func (h *SimFeedHandler) Tap(fn TradeHandler) {
	h.subs.tap(fn)
}

// Start emits synthetic trades until ctx is cancelled.
func (h *SimFeedHandler) Start(ctx context.Context) error {
	h.log.Info("simulated feed connected")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("simulated feed stopped")
			return nil
		case now := <-ticker.C:
			for _, symbol := range h.tickSymbols() {
				h.subs.dispatch(h.nextTrade(symbol, now))
			}
		}
	}
}

// tickSymbols merges cache-listed sim instruments, SIM_SYMBOLS declarations,
// and everything subscribed so far.
func (h *SimFeedHandler) tickSymbols() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(sym string) {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			return
		}
		if _, ok := seen[sym]; !ok {
			seen[sym] = struct{}{}
			out = append(out, sym)
		}
	}

	if h.deps.Instruments != nil {
		for _, inst := range h.deps.Instruments.ByExchange("sim") {
			add(inst.Symbol)
		}
	}
	if h.deps.Env != nil {
		for _, sym := range strings.Split(h.deps.Env.Getenv("SIM_SYMBOLS", ""), ",") {
			add(sym)
		}
	}
	for _, sym := range h.subs.symbols() {
		add(sym)
	}
	return out
}

func (h *SimFeedHandler) nextTrade(symbol string, now time.Time) domain.Trade {
	h.mu.Lock()
	price, ok := h.prices[symbol]
	if !ok {
		price = 100
	}
	// Random walk, clamped away from zero.
	price += price * (rand.Float64() - 0.5) * 0.002
	if price < 0.01 {
		price = 0.01
	}
	h.prices[symbol] = price
	h.nextID++
	id := h.nextID
	h.mu.Unlock()

	return domain.Trade{
		Symbol:    symbol,
		Timestamp: now,
		Price:     price,
		Size:      float64(1 + rand.Intn(100)),
		Exchange:  ExchangeSim,
		ID:        strconv.FormatInt(id, 10),
	}
}

// LastPrice returns the most recent simulated price for symbol, if any.
func (h *SimFeedHandler) LastPrice(symbol string) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.prices[strings.ToUpper(symbol)]
	return p, ok
}

// ---------------------------------------------------------------------------
// SimOrderPlacer — in-memory immediate fills.
// ---------------------------------------------------------------------------

// SimOrderPlacer accepts every order and fills it immediately at the limit
// price (or a fixed reference price for market orders). Orders are tracked in
// memory only.
type SimOrderPlacer struct {
	instanceID string
	log        *slog.Logger

	mu     sync.Mutex
	orders map[string]*domain.Order
	nextID int64
}

// NewSimOrderPlacer creates a simulated order placer.
func NewSimOrderPlacer(deps Deps, instanceID string) *SimOrderPlacer {
	return &SimOrderPlacer{
		instanceID: instanceID,
		log:        deps.logger().With("orderplacer", ExchangeSim, "instance", instanceID),
		orders:     make(map[string]*domain.Order),
	}
}

// Exchange returns "Sim".
func (p *SimOrderPlacer) Exchange() string { return ExchangeSim }

// SubmitOrder records the order and simulates an immediate full fill.
func (p *SimOrderPlacer) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order.Qty <= 0 {
		return nil, fmt.Errorf("sim order placer: qty must be > 0, got %f", order.Qty)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	now := time.Now().UTC()

	accepted := *order
	accepted.ID = "sim-" + strconv.FormatInt(p.nextID, 10)
	accepted.Status = domain.OrderStatusFilled
	accepted.FilledQty = order.Qty
	accepted.FilledAvgPrice = order.LimitPrice
	if accepted.FilledAvgPrice == 0 {
		accepted.FilledAvgPrice = 100
	}
	accepted.CreatedAt = now
	accepted.UpdatedAt = now

	p.orders[accepted.ID] = &accepted
	p.log.Info("order filled",
		"id", accepted.ID,
		"symbol", accepted.Symbol,
		"side", accepted.Side,
		"qty", accepted.Qty,
		"price", accepted.FilledAvgPrice,
	)

	result := accepted
	return &result, nil
}

// CancelOrder marks an open order as cancelled. Filled orders are left
// untouched.
func (p *SimOrderPlacer) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %q", ErrNotFound, orderID)
	}
	if order.Status != domain.OrderStatusFilled {
		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Orders returns a snapshot of every order seen so far.
func (p *SimOrderPlacer) Orders() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, *o)
	}
	return out
}
