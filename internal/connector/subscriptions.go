package connector

import (
	"strings"
	"sync"

	"helios/internal/domain"
)

// subscriptions is the shared dispatch table embedded by every feed handler:
// per-symbol trade handlers plus taps that observe every trade. Safe for
// concurrent subscribe/dispatch since strategies activate while the feed
// read loop is already running.
type subscriptions struct {
	mu       sync.RWMutex
	bySymbol map[string][]TradeHandler
	taps     []TradeHandler
	listener func(symbol string)
}

func newSubscriptions() *subscriptions {
	return &subscriptions{bySymbol: make(map[string][]TradeHandler)}
}

func (s *subscriptions) subscribe(symbol string, fn TradeHandler) {
	symbol = strings.ToUpper(symbol)
	s.mu.Lock()
	known := len(s.bySymbol[symbol]) > 0
	s.bySymbol[symbol] = append(s.bySymbol[symbol], fn)
	listener := s.listener
	s.mu.Unlock()

	// Strategies subscribe after their feed handler is already streaming, so
	// a live session must hear about each new symbol.
	if listener != nil && !known {
		listener(symbol)
	}
}

// setListener installs the callback a live session uses to pick up symbols
// subscribed after connect. Pass nil when the session ends.
func (s *subscriptions) setListener(fn func(symbol string)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

func (s *subscriptions) tap(fn TradeHandler) {
	s.mu.Lock()
	s.taps = append(s.taps, fn)
	s.mu.Unlock()
}

func (s *subscriptions) dispatch(trade domain.Trade) {
	s.mu.RLock()
	handlers := s.bySymbol[strings.ToUpper(trade.Symbol)]
	taps := s.taps
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn(trade)
	}
	for _, fn := range taps {
		fn(trade)
	}
}

// symbols returns the currently subscribed symbols.
func (s *subscriptions) symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bySymbol))
	for sym := range s.bySymbol {
		out = append(out, sym)
	}
	return out
}
