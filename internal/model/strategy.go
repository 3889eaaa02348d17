package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReplayReport 策略回放結果報告
type ReplayReport struct {
	StrategyName   string           `json:"strategy_name"`
	TotalTrades    int              `json:"total_trades"`
	WinRate        float64          `json:"win_rate"`
	TotalReturn    decimal.Decimal  `json:"total_return"`
	TotalProfit    decimal.Decimal  `json:"total_profit"`
	MaxDrawdown    float64          `json:"max_drawdown"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	FinalBalance   decimal.Decimal  `json:"final_balance"`
	TradesLog      []SimulatedTrade `json:"trades_log"`
}

// SimulatedTrade 回放中的單筆交易記錄
type SimulatedTrade struct {
	Time   time.Time       `json:"time"`
	Code   string          `json:"code"`
	Side   OrderAction     `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Size   int64           `json:"size"`
	PnL    decimal.Decimal `json:"pnl"`
}
