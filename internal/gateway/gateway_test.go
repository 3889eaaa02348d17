package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcher_FansOutToAllHandlers(t *testing.T) {
	var d Dispatcher

	ticks := make([]string, 0)
	d.OnTick(func(market model.MarketClass, tick model.Tick) {
		ticks = append(ticks, "a:"+tick.Code)
	})
	d.OnTick(func(market model.MarketClass, tick model.Tick) {
		ticks = append(ticks, "b:"+tick.Code)
	})

	deals := 0
	d.OnTrade(func(deal model.Deal) { deals++ })

	d.EmitTick(model.MarketDerivative, model.Tick{Code: "TXFR1"})
	d.EmitTrade(model.Deal{OrderID: "x"})

	assert.Equal(t, []string{"a:TXFR1", "b:TXFR1"}, ticks)
	assert.Equal(t, 1, deals)
}

func TestIncreaseBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, increaseBackoff(time.Second))
	assert.Equal(t, 32*time.Second, increaseBackoff(16*time.Second))
	assert.Equal(t, time.Minute, increaseBackoff(40*time.Second))
	assert.Equal(t, time.Minute, increaseBackoff(time.Minute))
}

func TestSimGateway_UnknownContract(t *testing.T) {
	g := NewSimGateway(zap.NewNop())

	c, err := g.LookupContract("NOPE", model.MarketDerivative)
	assert.NoError(t, err)
	assert.Nil(t, c)

	// same code in the other market class is a different catalog entry
	c, err = g.LookupContract("2330", model.MarketDerivative)
	assert.NoError(t, err)
	assert.Nil(t, c)
	c, err = g.LookupContract("2330", model.MarketEquity)
	assert.NoError(t, err)
	assert.NotNil(t, c)
}

func TestSimGateway_MarketOrderAutoFill(t *testing.T) {
	g := NewSimGateway(zap.NewNop())

	var filled []model.Deal
	g.OnTrade(func(deal model.Deal) { filled = append(filled, deal) })

	contract, err := g.LookupContract("TXFR1", model.MarketDerivative)
	assert.NoError(t, err)

	ord, err := g.PlaceOrder(context.Background(), contract, model.OrderRequest{
		Code:      "TXFR1",
		Market:    model.MarketDerivative,
		Action:    model.ActionSell,
		Price:     decimal.NewFromInt(20000),
		Quantity:  1,
		PriceType: model.PriceTypeMarket,
		OrderType: model.OrderTypeROD,
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, ord.Status)
	assert.Len(t, filled, 1)
	assert.Equal(t, ord.ID, filled[0].OrderID)

	// filling again is a no-op, no duplicate deal
	g.FillOrder(ord.ID, decimal.NewFromInt(20000))
	assert.Len(t, filled, 1)
}

func TestSimGateway_LimitOrderStaysOpen(t *testing.T) {
	g := NewSimGateway(zap.NewNop())

	contract, err := g.LookupContract("TMFR1", model.MarketDerivative)
	assert.NoError(t, err)

	ord, err := g.PlaceOrder(context.Background(), contract, model.OrderRequest{
		Code:      "TMFR1",
		Market:    model.MarketDerivative,
		Action:    model.ActionBuy,
		Price:     decimal.NewFromInt(19900),
		Quantity:  1,
		PriceType: model.PriceTypeLimit,
		OrderType: model.OrderTypeROD,
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusSubmitted, ord.Status)

	_, err = g.PlaceOrder(context.Background(), contract, model.OrderRequest{
		Code: "TMFR1", Market: model.MarketDerivative,
		Action: model.ActionBuy, Quantity: 0,
		PriceType: model.PriceTypeLimit,
	})
	assert.Error(t, err)
}

func TestSimGateway_HistoryIsolation(t *testing.T) {
	g := NewSimGateway(zap.NewNop())
	contract := &model.Contract{Code: "TXFR1", Market: model.MarketDerivative}

	seed := []model.Tick{{Code: "TXFR1", Price: decimal.NewFromInt(100), Timestamp: time.Now()}}
	g.LoadHistory("TXFR1", "", seed)

	got, err := g.FetchTicks(context.Background(), contract, "")
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	got[0].Price = decimal.NewFromInt(1)
	again, err := g.FetchTicks(context.Background(), contract, "")
	assert.NoError(t, err)
	assert.True(t, again[0].Price.Equal(decimal.NewFromInt(100)))
}
