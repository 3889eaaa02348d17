// Package trading wraps the brokerage's order surface with local validation
// and status reconciliation. The core owns intent only; order state always
// belongs to the gateway.
package trading

import (
	"context"
	"fmt"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/infrastructure"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderGateway struct {
	gw     gateway.Gateway
	logger *zap.Logger
}

func NewOrderGateway(gw gateway.Gateway, logger *zap.Logger) *OrderGateway {
	return &OrderGateway{gw: gw, logger: logger}
}

// Place resolves the contract and submits the order.
func (o *OrderGateway) Place(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	contract, err := o.gw.LookupContract(req.Code, req.Market)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", req.Code, err)
	}
	if contract == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrContractNotFound, req.Code, req.Market)
	}

	ord, err := o.gw.PlaceOrder(ctx, contract, req)
	if err != nil {
		return nil, fmt.Errorf("place order for %s: %w", req.Code, err)
	}

	infrastructure.OrdersPlaced.WithLabelValues(string(req.Action)).Inc()
	o.logger.Info("order placed",
		zap.String("order_id", ord.ID),
		zap.String("code", ord.Code),
		zap.String("action", string(ord.Action)),
		zap.String("price", ord.Price.String()),
		zap.Int64("quantity", ord.Quantity),
	)
	return ord, nil
}

// List forces a status refresh and returns every order known today.
func (o *OrderGateway) List(ctx context.Context) ([]model.Order, error) {
	if err := o.gw.RefreshStatus(ctx); err != nil {
		return nil, fmt.Errorf("refresh status: %w", err)
	}
	return o.gw.ListOrders(ctx)
}

// ListActive returns orders still working at the exchange; terminal states
// are excluded.
func (o *OrderGateway) ListActive(ctx context.Context) ([]model.Order, error) {
	orders, err := o.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]model.Order, 0, len(orders))
	for _, ord := range orders {
		if activeStatuses[ord.Status] {
			active = append(active, ord)
		}
	}
	return active, nil
}

// Cancel requests cancellation by id. An id absent from the refreshed set is
// treated as already terminal and succeeds with a warning: multiple triggers
// racing to cancel the same leg must not turn into a failure storm.
func (o *OrderGateway) Cancel(ctx context.Context, orderID string) error {
	ord, err := o.findActive(ctx, orderID)
	if err != nil {
		return err
	}
	if ord == nil {
		o.logger.Warn("cancel requested for unknown or closed order", zap.String("order_id", orderID))
		return nil
	}

	if err := o.gw.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	o.logger.Info("cancellation requested", zap.String("order_id", orderID))
	return nil
}

// CancelAll cancels every active order and returns how many cancellation
// requests were sent.
func (o *OrderGateway) CancelAll(ctx context.Context) (int, error) {
	active, err := o.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, ord := range active {
		if err := o.gw.CancelOrder(ctx, ord.ID); err != nil {
			return count, fmt.Errorf("cancel order %s: %w", ord.ID, err)
		}
		count++
	}
	return count, nil
}

// UpdatePrice modifies the working price of an active order.
func (o *OrderGateway) UpdatePrice(ctx context.Context, orderID string, price decimal.Decimal) error {
	ord, err := o.findActive(ctx, orderID)
	if err != nil {
		return err
	}
	if ord == nil {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	if err := o.gw.UpdateOrderPrice(ctx, orderID, price); err != nil {
		return fmt.Errorf("update price for %s: %w", orderID, err)
	}
	// pull the applied modification back into the local view
	if err := o.gw.RefreshStatus(ctx); err != nil {
		o.logger.Warn("status refresh after price update failed", zap.Error(err))
	}
	return nil
}

// Position returns the open position for a code, or nil when the account
// holds none. A position is never fabricated.
func (o *OrderGateway) Position(ctx context.Context, code string, market model.MarketClass) (*model.Position, error) {
	positions, err := o.gw.ListPositions(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	for _, p := range positions {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, nil
}

func (o *OrderGateway) findActive(ctx context.Context, orderID string) (*model.Order, error) {
	active, err := o.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if active[i].ID == orderID {
			return &active[i], nil
		}
	}
	return nil, nil
}
