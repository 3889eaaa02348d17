// Package gateway abstracts the external brokerage capability: session,
// contract catalog, tick subscription with push callbacks, historical tick
// fetch, order actions, and status/position polling.
package gateway

import (
	"context"
	"sync"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
)

type TickHandler func(market model.MarketClass, tick model.Tick)

type TradeHandler func(deal model.Deal)

// Gateway is the surface the core needs from the brokerage. Lookup returns
// (nil, nil) when no contract matches; callers translate that into their own
// not-found errors. FetchTicks with an empty date returns the most recent
// complete session.
type Gateway interface {
	Login(ctx context.Context) error
	LookupContract(code string, market model.MarketClass) (*model.Contract, error)
	SubscribeTick(contract *model.Contract) error
	UnsubscribeTick(contract *model.Contract) error
	FetchTicks(ctx context.Context, contract *model.Contract, date string) ([]model.Tick, error)
	PlaceOrder(ctx context.Context, contract *model.Contract, req model.OrderRequest) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	UpdateOrderPrice(ctx context.Context, orderID string, price decimal.Decimal) error
	RefreshStatus(ctx context.Context) error
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListPositions(ctx context.Context, market model.MarketClass) ([]model.Position, error)

	OnTick(h TickHandler)
	OnTrade(h TradeHandler)
}

// Dispatcher is the single dispatch point for push callbacks. Gateway
// implementations embed it and call EmitTick/EmitTrade from their delivery
// goroutine; handlers must not block.
type Dispatcher struct {
	mu            sync.RWMutex
	tickHandlers  []TickHandler
	tradeHandlers []TradeHandler
}

func (d *Dispatcher) OnTick(h TickHandler) {
	d.mu.Lock()
	d.tickHandlers = append(d.tickHandlers, h)
	d.mu.Unlock()
}

func (d *Dispatcher) OnTrade(h TradeHandler) {
	d.mu.Lock()
	d.tradeHandlers = append(d.tradeHandlers, h)
	d.mu.Unlock()
}

func (d *Dispatcher) EmitTick(market model.MarketClass, tick model.Tick) {
	d.mu.RLock()
	handlers := d.tickHandlers
	d.mu.RUnlock()
	for _, h := range handlers {
		h(market, tick)
	}
}

func (d *Dispatcher) EmitTrade(deal model.Deal) {
	d.mu.RLock()
	handlers := d.tradeHandlers
	d.mu.RUnlock()
	for _, h := range handlers {
		h(deal)
	}
}
