package trading

import (
	"context"
	"testing"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestOrderGateway() (*OrderGateway, *gateway.SimGateway) {
	logger := zap.NewNop()
	sim := gateway.NewSimGateway(logger)
	return NewOrderGateway(sim, logger), sim
}

func limitBuy(code string, market model.MarketClass, price int64, qty int64) model.OrderRequest {
	return model.OrderRequest{
		Code:      code,
		Market:    market,
		Action:    model.ActionBuy,
		Price:     decimal.NewFromInt(price),
		Quantity:  qty,
		PriceType: model.PriceTypeLimit,
		OrderType: model.OrderTypeROD,
	}
}

func TestPlace_UnknownContract(t *testing.T) {
	og, _ := newTestOrderGateway()

	_, err := og.Place(context.Background(), limitBuy("NOPE", model.MarketDerivative, 20000, 1))
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestPlace_AndListActive(t *testing.T) {
	og, _ := newTestOrderGateway()
	ctx := context.Background()

	ord, err := og.Place(ctx, limitBuy("TXFR1", model.MarketDerivative, 20000, 1))
	assert.NoError(t, err)
	assert.NotEmpty(t, ord.ID)
	assert.Equal(t, model.OrderStatusSubmitted, ord.Status)

	active, err := og.ListActive(ctx)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, ord.ID, active[0].ID)
}

func TestListActive_ExcludesTerminal(t *testing.T) {
	og, sim := newTestOrderGateway()
	ctx := context.Background()

	ord, err := og.Place(ctx, limitBuy("TXFR1", model.MarketDerivative, 20000, 1))
	assert.NoError(t, err)
	sim.FillOrder(ord.ID, decimal.NewFromInt(20000))

	active, err := og.ListActive(ctx)
	assert.NoError(t, err)
	assert.Empty(t, active)
}

func TestCancel_UnknownOrderSucceeds(t *testing.T) {
	og, _ := newTestOrderGateway()

	// already-closed or never-known ids are not an error
	assert.NoError(t, og.Cancel(context.Background(), "deadbeef"))
}

func TestCancel_ActiveOrder(t *testing.T) {
	og, _ := newTestOrderGateway()
	ctx := context.Background()

	ord, err := og.Place(ctx, limitBuy("TXFR1", model.MarketDerivative, 20000, 1))
	assert.NoError(t, err)

	assert.NoError(t, og.Cancel(ctx, ord.ID))
	active, err := og.ListActive(ctx)
	assert.NoError(t, err)
	assert.Empty(t, active)
}

func TestCancelAll(t *testing.T) {
	og, _ := newTestOrderGateway()
	ctx := context.Background()

	_, err := og.Place(ctx, limitBuy("TXFR1", model.MarketDerivative, 20000, 1))
	assert.NoError(t, err)
	_, err = og.Place(ctx, limitBuy("TMFR1", model.MarketDerivative, 20010, 2))
	assert.NoError(t, err)

	count, err := og.CancelAll(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdatePrice_UnknownOrder(t *testing.T) {
	og, _ := newTestOrderGateway()

	err := og.UpdatePrice(context.Background(), "deadbeef", decimal.NewFromInt(20100))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdatePrice_Active(t *testing.T) {
	og, _ := newTestOrderGateway()
	ctx := context.Background()

	ord, err := og.Place(ctx, limitBuy("TXFR1", model.MarketDerivative, 20000, 1))
	assert.NoError(t, err)

	assert.NoError(t, og.UpdatePrice(ctx, ord.ID, decimal.NewFromInt(20100)))

	active, err := og.ListActive(ctx)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.True(t, active[0].CurrentPrice().Equal(decimal.NewFromInt(20100)))
}

func TestPosition_NeverFabricated(t *testing.T) {
	og, sim := newTestOrderGateway()
	ctx := context.Background()

	pos, err := og.Position(ctx, "TXFR1", model.MarketDerivative)
	assert.NoError(t, err)
	assert.Nil(t, pos)

	sim.SetPosition(model.Position{
		Code: "TXFR1", Market: model.MarketDerivative,
		Quantity: -2, Price: decimal.NewFromInt(20000),
	})

	pos, err = og.Position(ctx, "TXFR1", model.MarketDerivative)
	assert.NoError(t, err)
	assert.NotNil(t, pos)
	assert.Equal(t, model.DirectionShort, pos.Direction())
	assert.Equal(t, int64(2), pos.AbsQuantity())
}
