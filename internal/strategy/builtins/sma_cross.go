// Package builtins provides built-in strategy implementations that ship with
// the engine. Each strategy registers itself with the default loader at init
// time so configuration files can reference it by module and class.
package builtins

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"helios/internal/domain"
	"helios/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

func init() {
	strategy.Register("builtins", "SMACross", func() strategy.Strategy { return &SMACross{} })
}

// SMACross implements a simple moving average crossover strategy. It buys
// when the short-period SMA crosses above the long-period SMA and sells when
// it crosses below. Periods, instrument, and order size come from the
// strategy's environment:
//
//	SMA_EXCHANGE  exchange to trade on (default "Sim")
//	SMA_SYMBOL    instrument symbol (default "BTCUSD")
//	SMA_SHORT     short SMA period in trades (default 10)
//	SMA_LONG      long SMA period in trades (default 50)
//	SMA_QTY       order quantity (default 1)
type SMACross struct {
	ctx      *strategy.Context
	exchange string
	symbol   string
	short    int
	long     int
	qty      float64

	mu      sync.Mutex
	prices  []float64
	holding bool // currently holding a long position
}

// Init reads configuration from the strategy environment and validates the
// period relationship.
func (s *SMACross) Init(ctx *strategy.Context) error {
	s.ctx = ctx
	s.exchange = ctx.Getenv("SMA_EXCHANGE", "Sim")
	s.symbol = ctx.Getenv("SMA_SYMBOL", "BTCUSD")

	var err error
	if s.short, err = envInt(ctx, "SMA_SHORT", 10); err != nil {
		return err
	}
	if s.long, err = envInt(ctx, "SMA_LONG", 50); err != nil {
		return err
	}
	if s.short >= s.long {
		return fmt.Errorf("sma cross: short period %d must be less than long period %d", s.short, s.long)
	}
	if s.qty, err = envFloat(ctx, "SMA_QTY", 1); err != nil {
		return err
	}

	s.ctx.Log.Info("sma cross configured",
		"exchange", s.exchange,
		"symbol", s.symbol,
		"short", s.short,
		"long", s.long,
		"qty", s.qty,
	)
	return nil
}

// Start subscribes to the configured trade stream.
func (s *SMACross) Start() error {
	return s.ctx.MarketData.SubscribeTrades(s.exchange, s.symbol, s.onTrade)
}

func (s *SMACross) onTrade(t domain.Trade) {
	side, ok := s.observe(t.Price)
	if !ok {
		return
	}

	order := &domain.Order{
		Symbol:      s.symbol,
		Side:        side,
		Type:        domain.OrderTypeMarket,
		TimeInForce: domain.TimeInForceIOC,
		Qty:         s.qty,
	}
	placed, err := s.ctx.Trading.SubmitOrder(context.Background(), s.exchange, order)
	if err != nil {
		s.ctx.Log.Error("sma cross order failed", "side", side, "symbol", s.symbol, "err", err)
		return
	}
	s.ctx.Log.Info("sma cross order placed",
		"id", placed.ID,
		"side", side,
		"symbol", s.symbol,
		"price", t.Price,
	)
}

// observe folds one price into the window and reports whether a crossover
// fired and in which direction.
func (s *SMACross) observe(price float64) (domain.OrderSide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices = append(s.prices, price)
	if len(s.prices) > s.long {
		s.prices = s.prices[len(s.prices)-s.long:]
	}
	if len(s.prices) < s.long {
		return "", false
	}

	shortSMA := mean(s.prices[len(s.prices)-s.short:])
	longSMA := mean(s.prices)

	switch {
	case shortSMA > longSMA && !s.holding:
		s.holding = true
		return domain.OrderSideBuy, true
	case shortSMA < longSMA && s.holding:
		s.holding = false
		return domain.OrderSideSell, true
	}
	return "", false
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func envInt(ctx *strategy.Context, key string, def int) (int, error) {
	raw := ctx.Getenv(key, strconv.Itoa(def))
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("sma cross: %s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func envFloat(ctx *strategy.Context, key string, def float64) (float64, error) {
	raw := ctx.Getenv(key, strconv.FormatFloat(def, 'f', -1, 64))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("sma cross: %s must be a positive number, got %q", key, raw)
	}
	return v, nil
}
