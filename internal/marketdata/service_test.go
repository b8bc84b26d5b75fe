package marketdata

import (
	"context"
	"errors"
	"testing"

	"helios/internal/connector"
	"helios/internal/domain"
)

type stubFeedHandler struct {
	exchange string
	subs     map[string][]connector.TradeHandler
}

func newStubFeedHandler(exchange string) *stubFeedHandler {
	return &stubFeedHandler{exchange: exchange, subs: map[string][]connector.TradeHandler{}}
}

func (s *stubFeedHandler) Exchange() string            { return s.exchange }
func (s *stubFeedHandler) Start(context.Context) error { return nil }
func (s *stubFeedHandler) Tap(connector.TradeHandler)  {}
func (s *stubFeedHandler) SubscribeTrades(symbol string, fn connector.TradeHandler) {
	s.subs[symbol] = append(s.subs[symbol], fn)
}

func TestSubscribeTrades(t *testing.T) {
	feeds := connector.NewRegistry[connector.FeedHandler]()
	fh := newStubFeedHandler(connector.ExchangeSim)
	if err := feeds.Register(connector.ExchangeSim, fh); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	svc := NewService(feeds, nil)
	if err := svc.SubscribeTrades(connector.ExchangeSim, "BTCUSD", func(domain.Trade) {}); err != nil {
		t.Fatalf("SubscribeTrades() returned error: %v", err)
	}
	if len(fh.subs["BTCUSD"]) != 1 {
		t.Errorf("feed handler has %d handlers for BTCUSD, want 1", len(fh.subs["BTCUSD"]))
	}
}

func TestSubscribeTradesUnknownExchange(t *testing.T) {
	svc := NewService(connector.NewRegistry[connector.FeedHandler](), nil)
	err := svc.SubscribeTrades("Phemex", "BTCUSD", func(domain.Trade) {})
	if !errors.Is(err, connector.ErrNotFound) {
		t.Fatalf("SubscribeTrades() error = %v, want ErrNotFound", err)
	}
}

func TestExchanges(t *testing.T) {
	feeds := connector.NewRegistry[connector.FeedHandler]()
	for _, ex := range []string{connector.ExchangePhemex, connector.ExchangeSim} {
		if err := feeds.Register(ex, newStubFeedHandler(ex)); err != nil {
			t.Fatalf("Register(%s) returned error: %v", ex, err)
		}
	}

	svc := NewService(feeds, nil)
	got := svc.Exchanges()
	if len(got) != 2 || got[0] != connector.ExchangePhemex || got[1] != connector.ExchangeSim {
		t.Errorf("Exchanges() = %v, want configuration order [Phemex Sim]", got)
	}
}
