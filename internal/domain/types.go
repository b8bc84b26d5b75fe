// Package domain defines the core value types shared by connectors,
// strategies, and the market-data recorder.
package domain

import "time"

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// OrderSide indicates the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType indicates how an order is priced.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus tracks the lifecycle of an order at the exchange.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// TimeInForce indicates how long an order remains active.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Trade is a single executed trade reported by an exchange feed.
type Trade struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	Size      float64
	Exchange  string
	ID        string
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// Order represents an order submitted through an order placer. The ID is
// assigned by the exchange (or simulator) on acceptance.
type Order struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	TimeInForce    TimeInForce
	Qty            float64
	LimitPrice     float64
	Status         OrderStatus
	FilledQty      float64
	FilledAvgPrice float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
