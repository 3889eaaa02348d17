package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimGateway is an in-memory brokerage used for simulation mode and tests.
// It keeps a small contract catalog, accepts orders, and can synthesize a
// random-walk tick feed for subscribed contracts. Market orders fill
// immediately at their submitted price when AutoFillMarket is set.
type SimGateway struct {
	Dispatcher

	logger *zap.Logger

	mu         sync.Mutex
	contracts  map[model.MarketClass]map[string]model.Contract
	orders     map[string]*model.Order
	positions  map[model.MarketClass]map[string]model.Position
	history    map[string][]model.Tick
	subscribed map[string]model.Contract
	lastPrice  map[string]decimal.Decimal

	AutoFillMarket bool
}

func NewSimGateway(logger *zap.Logger) *SimGateway {
	g := &SimGateway{
		logger:         logger,
		contracts:      make(map[model.MarketClass]map[string]model.Contract),
		orders:         make(map[string]*model.Order),
		positions:      make(map[model.MarketClass]map[string]model.Position),
		history:        make(map[string][]model.Tick),
		subscribed:     make(map[string]model.Contract),
		lastPrice:      make(map[string]decimal.Decimal),
		AutoFillMarket: true,
	}
	// default catalog for the CLI's simulation mode
	g.AddContract(model.Contract{Code: "TXFR1", Market: model.MarketDerivative, Name: "TAIEX Futures R1", Reference: decimal.NewFromInt(20000)})
	g.AddContract(model.Contract{Code: "TMFR1", Market: model.MarketDerivative, Name: "Micro TAIEX Futures R1", Reference: decimal.NewFromInt(20000)})
	g.AddContract(model.Contract{Code: "2330", Market: model.MarketEquity, Name: "TSMC", Reference: decimal.NewFromInt(1000)})
	g.AddContract(model.Contract{Code: "2890", Market: model.MarketEquity, Name: "Sinopac", Reference: decimal.NewFromInt(20)})
	return g
}

func (g *SimGateway) AddContract(c model.Contract) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.contracts[c.Market] == nil {
		g.contracts[c.Market] = make(map[string]model.Contract)
	}
	g.contracts[c.Market][c.Code] = c
}

// SetPosition seeds an open position, signed quantity (negative = short).
func (g *SimGateway) SetPosition(p model.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.positions[p.Market] == nil {
		g.positions[p.Market] = make(map[string]model.Position)
	}
	g.positions[p.Market][p.Code] = p
}

// LoadHistory seeds historical ticks for FetchTicks. An empty date keys the
// most recent complete session.
func (g *SimGateway) LoadHistory(code, date string, ticks []model.Tick) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history[code+"|"+date] = ticks
}

func (g *SimGateway) Login(ctx context.Context) error { return nil }

func (g *SimGateway) LookupContract(code string, market model.MarketClass) (*model.Contract, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.contracts[market][code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (g *SimGateway) SubscribeTick(contract *model.Contract) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribed[contract.Code] = *contract
	return nil
}

func (g *SimGateway) UnsubscribeTick(contract *model.Contract) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.subscribed, contract.Code)
	return nil
}

func (g *SimGateway) FetchTicks(ctx context.Context, contract *model.Contract, date string) ([]model.Tick, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ticks := g.history[contract.Code+"|"+date]
	out := make([]model.Tick, len(ticks))
	copy(out, ticks)
	return out, nil
}

func (g *SimGateway) PlaceOrder(ctx context.Context, contract *model.Contract, req model.OrderRequest) (*model.Order, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("sim gateway: quantity must be positive, got %d", req.Quantity)
	}

	ord := &model.Order{
		ID:        uuid.NewString()[:8],
		Code:      contract.Code,
		Market:    contract.Market,
		Action:    req.Action,
		Price:     req.Price,
		Quantity:  req.Quantity,
		PriceType: req.PriceType,
		OrderType: req.OrderType,
		Status:    model.OrderStatusSubmitted,
		CreatedAt: time.Now(),
	}

	g.mu.Lock()
	g.orders[ord.ID] = ord
	autoFill := g.AutoFillMarket && req.PriceType == model.PriceTypeMarket
	g.mu.Unlock()

	g.logger.Info("sim order accepted",
		zap.String("order_id", ord.ID),
		zap.String("code", ord.Code),
		zap.String("action", string(ord.Action)),
		zap.String("price", ord.Price.String()),
		zap.Int64("quantity", ord.Quantity),
	)

	if autoFill {
		g.FillOrder(ord.ID, req.Price)
	}
	snapshot := *ord
	return &snapshot, nil
}

// FillOrder marks an order filled and emits its deal notification. Filling
// an unknown or already terminal order is a no-op.
func (g *SimGateway) FillOrder(orderID string, price decimal.Decimal) {
	g.mu.Lock()
	ord, ok := g.orders[orderID]
	if !ok || ord.Status.Terminal() {
		g.mu.Unlock()
		return
	}
	ord.Status = model.OrderStatusFilled
	ord.FilledQuantity = ord.Quantity
	deal := model.Deal{
		OrderID:   ord.ID,
		Code:      ord.Code,
		Market:    ord.Market,
		Action:    ord.Action,
		Price:     price,
		Quantity:  ord.Quantity,
		Timestamp: time.Now(),
	}
	g.mu.Unlock()

	g.EmitTrade(deal)
}

func (g *SimGateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ord, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("sim gateway: order %s not found", orderID)
	}
	if !ord.Status.Terminal() {
		ord.Status = model.OrderStatusCancelled
	}
	return nil
}

func (g *SimGateway) UpdateOrderPrice(ctx context.Context, orderID string, price decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ord, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("sim gateway: order %s not found", orderID)
	}
	ord.ModifiedPrice = price
	return nil
}

func (g *SimGateway) RefreshStatus(ctx context.Context) error { return nil }

func (g *SimGateway) ListOrders(ctx context.Context) ([]model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.Order, 0, len(g.orders))
	for _, ord := range g.orders {
		out = append(out, *ord)
	}
	return out, nil
}

func (g *SimGateway) ListPositions(ctx context.Context, market model.MarketClass) ([]model.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.Position, 0, len(g.positions[market]))
	for _, p := range g.positions[market] {
		out = append(out, p)
	}
	return out, nil
}

// PushTick fabricates a live tick for a subscribed code and dispatches it.
func (g *SimGateway) PushTick(market model.MarketClass, code string, price decimal.Decimal, volume int64) {
	tick := model.Tick{
		Code:      code,
		Market:    market,
		Price:     price,
		Volume:    volume,
		TickType:  model.TickTypeBuy,
		Timestamp: time.Now().Truncate(time.Microsecond),
	}
	g.mu.Lock()
	g.lastPrice[code] = price
	g.mu.Unlock()
	g.EmitTick(market, tick)
}

// StartFeed synthesizes a random-walk feed for every subscribed contract
// until ctx is done. Used by the CLI's simulation mode.
func (g *SimGateway) StartFeed(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.mu.Lock()
				targets := make([]model.Contract, 0, len(g.subscribed))
				for _, c := range g.subscribed {
					targets = append(targets, c)
				}
				g.mu.Unlock()

				for _, c := range targets {
					g.mu.Lock()
					last, ok := g.lastPrice[c.Code]
					g.mu.Unlock()
					if !ok {
						last = c.Reference
					}
					step := decimal.NewFromFloat((rand.Float64() - 0.5) * 2)
					next := last.Add(step).Round(2)
					g.PushTick(c.Market, c.Code, next, int64(rand.Intn(10)+1))
				}
			}
		}
	}()
}
