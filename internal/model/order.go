package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderAction string

const (
	ActionBuy  OrderAction = "buy"
	ActionSell OrderAction = "sell"
)

// Opposite returns the closing action for a position opened with a.
func (a OrderAction) Opposite() OrderAction {
	if a == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}

type PriceType string

const (
	PriceTypeLimit  PriceType = "LMT"
	PriceTypeMarket PriceType = "MKT"
)

type OrderType string

const (
	OrderTypeROD OrderType = "ROD" // rest of day
	OrderTypeIOC OrderType = "IOC"
	OrderTypeFOK OrderType = "FOK"
)

type OrderStatus string

const (
	OrderStatusPendingSubmit OrderStatus = "pending_submit"
	OrderStatusSubmitted     OrderStatus = "submitted"
	OrderStatusPartFilled    OrderStatus = "part_filled"
	OrderStatusFilled        OrderStatus = "filled"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusFailed        OrderStatus = "failed"
)

// Terminal reports whether no further status transitions are possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// OrderRequest 下單意圖 (the core owns intent, never broker state)
type OrderRequest struct {
	Code      string          `json:"code"`
	Market    MarketClass     `json:"market"`
	Action    OrderAction     `json:"action"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	PriceType PriceType       `json:"price_type"`
	OrderType OrderType       `json:"order_type"`
}

// Order 券商回報的委託單快照, 以 ID 為唯一識別
type Order struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Market         MarketClass     `json:"market"`
	Action         OrderAction     `json:"action"`
	Price          decimal.Decimal `json:"price"`
	ModifiedPrice  decimal.Decimal `json:"modified_price"`
	Quantity       int64           `json:"quantity"`
	FilledQuantity int64           `json:"filled_quantity"`
	PriceType      PriceType       `json:"price_type"`
	OrderType      OrderType       `json:"order_type"`
	Status         OrderStatus     `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CurrentPrice returns the working price, preferring an applied modification.
func (o Order) CurrentPrice() decimal.Decimal {
	if !o.ModifiedPrice.IsZero() {
		return o.ModifiedPrice
	}
	return o.Price
}

// Deal 成交回報 (push callback payload)
type Deal struct {
	OrderID   string          `json:"order_id"`
	Code      string          `json:"code"`
	Market    MarketClass     `json:"market"`
	Action    OrderAction     `json:"action"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Timestamp time.Time       `json:"ts"`
}

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Position 持倉. Quantity is signed: positive = long, negative = short.
type Position struct {
	Code     string          `json:"code"`
	Market   MarketClass     `json:"market"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"` // average entry price
}

func (p Position) Direction() Direction {
	if p.Quantity < 0 {
		return DirectionShort
	}
	return DirectionLong
}

func (p Position) AbsQuantity() int64 {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}
