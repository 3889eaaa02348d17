package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/quote"
	"github.com/MinJyun/FuturesTrade/internal/trading"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func barAt(close int64) model.KBar {
	return model.KBar{
		Code:   "TXFR1",
		Market: model.MarketDerivative,
		Close:  decimal.NewFromInt(close),
	}
}

func TestMACrossStrategy_GoldenCross(t *testing.T) {
	s := NewMACrossStrategy(2, 4)

	// Warm up below the long window
	for _, p := range []int64{100, 100, 100, 100} {
		assert.Equal(t, ActionHold, s.OnBar(barAt(p)))
	}

	// Flat series: no cross yet
	assert.Equal(t, ActionHold, s.OnBar(barAt(100)))

	// Sharp rise lifts the short MA over the long MA
	assert.Equal(t, ActionBuy, s.OnBar(barAt(110)))

	// Already above: staying above is not a new cross
	assert.Equal(t, ActionHold, s.OnBar(barAt(112)))
}

func TestMACrossStrategy_DeathCross(t *testing.T) {
	s := NewMACrossStrategy(2, 4)

	for _, p := range []int64{100, 100, 100, 100, 100} {
		s.OnBar(barAt(p))
	}
	assert.Equal(t, ActionSell, s.OnBar(barAt(80)))
	assert.Equal(t, ActionHold, s.OnBar(barAt(78)))
}

func TestNewBarStrategy(t *testing.T) {
	s, err := NewBarStrategy("ma_cross", map[string]interface{}{
		"short_period": float64(5), "long_period": float64(20),
	})
	assert.NoError(t, err)
	assert.Equal(t, "MA_Cross", s.Name())

	_, err = NewBarStrategy("ma_cross", map[string]interface{}{"short_period": float64(5)})
	assert.Error(t, err)

	_, err = NewBarStrategy("nope", nil)
	assert.Error(t, err)
}

func TestTickEntryStrategy_BuysOnCrossAbove(t *testing.T) {
	logger := zap.NewNop()
	sim := gateway.NewSimGateway(logger)
	buffer := quote.NewTickBuffer()
	quotes := quote.NewRegistry(sim, buffer, quote.NewGapRecovery(sim, logger), logger)
	orders := trading.NewOrderGateway(sim, logger)

	// MA over the last five is 100.2; the series crosses it from 99 to 102
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)
	for i, p := range []int64{100, 100, 100, 99, 102} {
		buffer.Record(model.Tick{
			Code:      "TXFR1",
			Market:    model.MarketDerivative,
			Price:     decimal.NewFromInt(p),
			Volume:    1,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	s := NewTickEntryStrategy(quotes, buffer, orders, "TXFR1", model.MarketDerivative, 1, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Run(ctx)
	assert.NoError(t, err)

	all, err := orders.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, model.ActionBuy, all[0].Action)
	assert.Equal(t, model.PriceTypeLimit, all[0].PriceType)
	assert.True(t, all[0].Price.Equal(decimal.NewFromInt(102)))
	assert.False(t, quotes.IsSubscribed("TXFR1", model.MarketDerivative))
}

func TestMovingAverage(t *testing.T) {
	ticks := []model.Tick{
		{Price: decimal.NewFromInt(10)},
		{Price: decimal.NewFromInt(11)},
		{Price: decimal.NewFromInt(12)},
	}
	assert.True(t, movingAverage(ticks).Equal(decimal.NewFromInt(11)))
}
