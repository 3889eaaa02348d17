package engine

import (
	"testing"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func makeBars(prices []int64) []model.KBar {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)
	bars := make([]model.KBar, len(prices))
	for i, p := range prices {
		bars[i] = model.KBar{
			Code:        "TXFR1",
			Market:      model.MarketDerivative,
			BucketStart: now.Add(time.Duration(i) * time.Minute),
			Close:       decimal.NewFromInt(p),
		}
	}
	return bars
}

func TestReplayer_RoundTrip(t *testing.T) {
	strat := strategy.NewMACrossStrategy(2, 4)
	rep := NewReplayer(strat, decimal.NewFromInt(10000), 1)

	// uptrend to force a golden cross, then a slide to force the death cross
	report := rep.Run(makeBars([]int64{100, 100, 100, 100, 100, 110, 115, 110, 100, 90, 85}))

	assert.Equal(t, "MA_Cross", report.StrategyName)
	assert.NotZero(t, report.TotalTrades)
	assert.True(t, report.TotalTrades%2 == 0, "every entry must have a matching exit")
	assert.False(t, report.FinalBalance.Equal(report.InitialBalance))

	// cost basis accounting: profit equals the balance delta
	delta := report.FinalBalance.Sub(report.InitialBalance)
	assert.True(t, report.TotalProfit.Equal(delta),
		"profit %s vs balance delta %s", report.TotalProfit, delta)
}

func TestReplayer_LiquidatesOpenPosition(t *testing.T) {
	strat := strategy.NewMACrossStrategy(2, 4)
	rep := NewReplayer(strat, decimal.NewFromInt(10000), 2)

	// ends mid-trend with the position still open
	report := rep.Run(makeBars([]int64{100, 100, 100, 100, 100, 110, 115, 120}))

	assert.NotZero(t, report.TotalTrades)
	last := report.TradesLog[len(report.TradesLog)-1]
	assert.Equal(t, model.ActionSell, last.Side)
	assert.Equal(t, int64(2), last.Size)
}

func TestReplayer_NoSignalNoTrades(t *testing.T) {
	strat := strategy.NewMACrossStrategy(2, 4)
	rep := NewReplayer(strat, decimal.NewFromInt(10000), 1)

	report := rep.Run(makeBars([]int64{100, 100, 100, 100, 100, 100}))

	assert.Zero(t, report.TotalTrades)
	assert.True(t, report.FinalBalance.Equal(report.InitialBalance))
	assert.Zero(t, report.WinRate)
}

func TestReplayer_SkipsEntryBeyondBalance(t *testing.T) {
	strat := strategy.NewMACrossStrategy(2, 4)
	rep := NewReplayer(strat, decimal.NewFromInt(50), 1)

	report := rep.Run(makeBars([]int64{100, 100, 100, 100, 100, 110, 115}))

	assert.Zero(t, report.TotalTrades)
	assert.True(t, report.FinalBalance.Equal(decimal.NewFromInt(50)))
}
