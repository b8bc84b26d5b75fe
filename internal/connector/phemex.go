package connector

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"helios/internal/domain"
	"helios/internal/util"
)

// Compile-time interface checks.
var _ FeedHandler = (*PhemexFeedHandler)(nil)
var _ OrderPlacer = (*PhemexOrderPlacer)(nil)

const (
	phemexDefaultWSURL   = "wss://ws.phemex.com"
	phemexDefaultRESTURL = "https://api.phemex.com"

	// Phemex reports prices as scaled integers (Ep notation).
	phemexPriceScale = 10000

	phemexPingInterval = 5 * time.Second
)

// ---------------------------------------------------------------------------
// PhemexFeedHandler — trade stream over the Phemex WebSocket API.
// ---------------------------------------------------------------------------

// PhemexFeedHandler ingests trades from the Phemex WebSocket feed. It manages
// its own connection lifecycle: the read loop reconnects with exponential
// backoff on any transport error and re-subscribes the current symbol set.
type PhemexFeedHandler struct {
	wsURL      string
	instanceID string
	subs       *subscriptions
	log        *slog.Logger
}

// NewPhemexFeedHandler creates a Phemex feed handler from the engine
// environment (optional PHEMEX_WS_URL override).
func NewPhemexFeedHandler(deps Deps, instanceID string) *PhemexFeedHandler {
	h := &PhemexFeedHandler{
		wsURL:      phemexDefaultWSURL,
		instanceID: instanceID,
		subs:       newSubscriptions(),
		log:        deps.logger().With("feedhandler", ExchangePhemex, "instance", instanceID),
	}
	if deps.Env != nil {
		h.wsURL = deps.Env.Getenv("PHEMEX_WS_URL", h.wsURL)
	}
	return h
}

// Exchange returns "Phemex".
func (h *PhemexFeedHandler) Exchange() string { return ExchangePhemex }

// SubscribeTrades registers a per-symbol trade handler.
func (h *PhemexFeedHandler) SubscribeTrades(symbol string, fn TradeHandler) {
	h.subs.subscribe(symbol, fn)
}

// Tap registers a handler for every trade.
func (h *PhemexFeedHandler) Tap(fn TradeHandler) {
	h.subs.tap(fn)
}

// Start runs the connect/stream loop until ctx is cancelled.
func (h *PhemexFeedHandler) Start(ctx context.Context) error {
	backoff := time.Second
	for {
		err := h.stream(ctx)
		if ctx.Err() != nil {
			h.log.Info("feed stopped")
			return nil
		}
		h.log.Warn("stream interrupted, reconnecting", "err", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// stream dials the WebSocket, subscribes the current symbol set, and pumps
// messages until the connection drops.
func (h *PhemexFeedHandler) stream(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, h.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", h.wsURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	h.log.Info("connected", "url", h.wsURL)

	// Symbols subscribed while this session is live flow through pending to
	// the write loop. The listener is installed before the initial symbol
	// snapshot, so a subscribe racing the snapshot at worst repeats a frame.
	pending := make(chan string, 16)
	h.subs.setListener(func(symbol string) {
		select {
		case pending <- symbol:
		default:
		}
	})
	defer h.subs.setListener(nil)

	reqID := 0
	for _, symbol := range h.subs.symbols() {
		reqID++
		sub := phemexRequest{ID: reqID, Method: "trade.subscribe", Params: []any{symbol}}
		if err := writeJSON(ctx, conn, sub); err != nil {
			return fmt.Errorf("subscribing %s: %w", symbol, err)
		}
	}

	// Keepalive pings and incremental subscribes share one writer goroutine;
	// it stops with the stream context.
	writeCtx, cancelWrites := context.WithCancel(ctx)
	defer cancelWrites()
	go h.writeLoop(writeCtx, conn, reqID, pending)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
		h.handleMessage(data)
	}
}

func (h *PhemexFeedHandler) writeLoop(ctx context.Context, conn *websocket.Conn, reqID int, pending <-chan string) {
	ticker := time.NewTicker(phemexPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case symbol := <-pending:
			reqID++
			sub := phemexRequest{ID: reqID, Method: "trade.subscribe", Params: []any{symbol}}
			if err := writeJSON(ctx, conn, sub); err != nil {
				return
			}
		case <-ticker.C:
			reqID++
			ping := phemexRequest{ID: reqID, Method: "server.ping", Params: []any{}}
			if err := writeJSON(ctx, conn, ping); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes a trade push. Non-trade frames (subscription acks,
// pong replies) are ignored. Numbers decode as json.Number because the
// nanosecond timestamps do not survive a float64 round trip.
func (h *PhemexFeedHandler) handleMessage(data []byte) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var msg phemexTradePush
	if err := dec.Decode(&msg); err != nil || msg.Symbol == "" || len(msg.Trades) == 0 {
		return
	}

	for _, raw := range msg.Trades {
		// Wire layout: [timestampNs, side, priceEp, qty].
		if len(raw) != 4 {
			continue
		}
		tsNs, ok1 := asInt64(raw[0])
		priceEp, ok2 := asInt64(raw[2])
		qty, ok3 := asFloat64(raw[3])
		if !ok1 || !ok2 || !ok3 {
			continue
		}

		h.subs.dispatch(domain.Trade{
			Symbol:    msg.Symbol,
			Timestamp: time.Unix(0, tsNs).UTC(),
			Price:     float64(priceEp) / phemexPriceScale,
			Size:      qty,
			Exchange:  ExchangePhemex,
			ID:        strconv.FormatInt(tsNs, 10),
		})
	}
}

type phemexRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type phemexTradePush struct {
	Symbol string  `json:"symbol"`
	Type   string  `json:"type"`
	Trades [][]any `json:"trades"`
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// PhemexOrderPlacer — signed REST order routing.
// ---------------------------------------------------------------------------

// PhemexOrderPlacer submits orders through the Phemex REST API using
// HMAC-SHA256 request signing. PHEMEX_API_KEY and PHEMEX_API_SECRET must
// resolve in the engine environment at registry-build time.
type PhemexOrderPlacer struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	instanceID string
	client     *http.Client
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewPhemexOrderPlacer creates a Phemex order placer, failing fast when a
// required credential key is absent.
func NewPhemexOrderPlacer(deps Deps, instanceID string) (OrderPlacer, error) {
	apiKey, err := requireCredential(deps.Env, "PHEMEX_API_KEY")
	if err != nil {
		return nil, err
	}
	apiSecret, err := requireCredential(deps.Env, "PHEMEX_API_SECRET")
	if err != nil {
		return nil, err
	}

	p := &PhemexOrderPlacer{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    phemexDefaultRESTURL,
		instanceID: instanceID,
		client:     http.DefaultClient,
		limiter:    util.NewRateLimiter(300),
		log:        deps.logger().With("orderplacer", ExchangePhemex, "instance", instanceID),
	}
	if deps.Env != nil {
		p.baseURL = deps.Env.Getenv("PHEMEX_REST_URL", p.baseURL)
	}
	if deps.Scheduler != nil {
		p.client = deps.Scheduler.HTTPClient()
	}
	return p, nil
}

// Exchange returns "Phemex".
func (p *PhemexOrderPlacer) Exchange() string { return ExchangePhemex }

// SubmitOrder places an order via POST /orders.
func (p *PhemexOrderPlacer) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := phemexOrderRequest{
		Symbol:      order.Symbol,
		ClOrdID:     order.ClientOrderID,
		Side:        phemexSide(order.Side),
		OrdType:     phemexOrdType(order.Type),
		OrderQty:    order.Qty,
		PriceEp:     int64(order.LimitPrice * phemexPriceScale),
		TimeInForce: phemexTimeInForce(order.TimeInForce),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var resp phemexOrderResponse
	if err := p.do(ctx, http.MethodPost, "/orders", "", payload, &resp); err != nil {
		return nil, fmt.Errorf("phemex place order %s %s: %w", order.Side, order.Symbol, err)
	}

	accepted := *order
	accepted.ID = resp.Data.OrderID
	accepted.Status = domain.OrderStatusAccepted
	now := time.Now().UTC()
	accepted.CreatedAt = now
	accepted.UpdatedAt = now

	p.log.Info("order submitted",
		"id", accepted.ID,
		"symbol", accepted.Symbol,
		"side", accepted.Side,
		"qty", accepted.Qty,
	)
	return &accepted, nil
}

// CancelOrder cancels an open order via DELETE /orders/cancel.
func (p *PhemexOrderPlacer) CancelOrder(ctx context.Context, orderID string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	query := "orderID=" + orderID
	var resp phemexOrderResponse
	if err := p.do(ctx, http.MethodDelete, "/orders/cancel", query, nil, &resp); err != nil {
		return fmt.Errorf("phemex cancel order %s: %w", orderID, err)
	}
	return nil
}

// do issues one signed request. The signature covers path + query + expiry +
// body per the Phemex signing scheme.
func (p *PhemexOrderPlacer) do(ctx context.Context, method, path, query string, body []byte, out any) error {
	url := p.baseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	expiry := strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-phemex-access-token", p.apiKey)
	req.Header.Set("x-phemex-request-expiry", expiry)
	req.Header.Set("x-phemex-request-signature", p.sign(path+query+expiry+string(body)))

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, data)
	}

	var envelope phemexEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("api error %d: %s", envelope.Code, envelope.Msg)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (p *PhemexOrderPlacer) sign(msg string) string {
	mac := hmac.New(sha256.New, []byte(p.apiSecret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

type phemexOrderRequest struct {
	Symbol      string  `json:"symbol"`
	ClOrdID     string  `json:"clOrdID,omitempty"`
	Side        string  `json:"side"`
	OrdType     string  `json:"ordType"`
	OrderQty    float64 `json:"orderQty"`
	PriceEp     int64   `json:"priceEp,omitempty"`
	TimeInForce string  `json:"timeInForce,omitempty"`
}

type phemexEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type phemexOrderResponse struct {
	phemexEnvelope
	Data struct {
		OrderID   string `json:"orderID"`
		OrdStatus string `json:"ordStatus"`
	} `json:"data"`
}

func phemexSide(side domain.OrderSide) string {
	if side == domain.OrderSideSell {
		return "Sell"
	}
	return "Buy"
}

func phemexOrdType(t domain.OrderType) string {
	if t == domain.OrderTypeLimit {
		return "Limit"
	}
	return "Market"
}

func phemexTimeInForce(tif domain.TimeInForce) string {
	switch tif {
	case domain.TimeInForceDay:
		return "Day"
	case domain.TimeInForceIOC:
		return "ImmediateOrCancel"
	default:
		return "GoodTillCancel"
	}
}
