package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketClass 市場別: 證券或期貨/選擇權
type MarketClass string

const (
	MarketEquity     MarketClass = "stk"
	MarketDerivative MarketClass = "fop"
)

// TickType 內外盤別 (成交主動方)
type TickType int8

const (
	TickTypeUnknown TickType = 0
	TickTypeBuy     TickType = 1
	TickTypeSell    TickType = 2
)

// Tick 代表一筆即時成交
type Tick struct {
	Code      string          `json:"code"`
	Market    MarketClass     `json:"market"`
	Price     decimal.Decimal `json:"price"`
	Volume    int64           `json:"volume"`
	TickType  TickType        `json:"tick_type"`
	Timestamp time.Time       `json:"ts"` // microsecond resolution
}

// KBar 代表一根K線
type KBar struct {
	Code        string          `json:"code"`
	Market      MarketClass     `json:"market"`
	BucketStart time.Time       `json:"t"`
	Open        decimal.Decimal `json:"o"`
	High        decimal.Decimal `json:"h"`
	Low         decimal.Decimal `json:"l"`
	Close       decimal.Decimal `json:"c"`
	Volume      int64           `json:"v"`
}

// Contract 商品基本資料 (由券商合約目錄查得)
type Contract struct {
	Code      string          `json:"code"`
	Market    MarketClass     `json:"market"`
	Name      string          `json:"name"`
	Reference decimal.Decimal `json:"reference"` // previous settlement / reference price
}
