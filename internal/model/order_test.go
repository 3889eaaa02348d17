package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderAction_Opposite(t *testing.T) {
	assert.Equal(t, ActionSell, ActionBuy.Opposite())
	assert.Equal(t, ActionBuy, ActionSell.Opposite())
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusFilled.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.True(t, OrderStatusFailed.Terminal())
	assert.False(t, OrderStatusSubmitted.Terminal())
	assert.False(t, OrderStatusPartFilled.Terminal())
}

func TestOrder_CurrentPricePrefersModification(t *testing.T) {
	o := Order{Price: decimal.NewFromInt(20000)}
	assert.True(t, o.CurrentPrice().Equal(decimal.NewFromInt(20000)))

	o.ModifiedPrice = decimal.NewFromInt(20100)
	assert.True(t, o.CurrentPrice().Equal(decimal.NewFromInt(20100)))
}
