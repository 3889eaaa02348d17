package trading

import (
	"errors"
	"fmt"

	"github.com/MinJyun/FuturesTrade/internal/model"
)

var (
	// ErrContractNotFound means the brokerage catalog has no such code.
	ErrContractNotFound = errors.New("contract not found")

	// ErrOrderNotFound means the order id is absent from the refreshed
	// active-order set.
	ErrOrderNotFound = errors.New("order not found")
)

// PositionMismatchError aborts a strategy run whose precondition on the
// held position does not hold. It never crashes the process.
type PositionMismatchError struct {
	Code   string
	Reason string
}

func (e *PositionMismatchError) Error() string {
	return fmt.Sprintf("position mismatch for %s: %s", e.Code, e.Reason)
}

// AnomalyError marks a fill observed for an order the strategy believed
// cancelled or terminal. It is surfaced loudly, never swallowed: it
// indicates a possible double-fill risk event.
type AnomalyError struct {
	OrderID string
	Detail  string
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("anomalous fill for order %s: %s", e.OrderID, e.Detail)
}

// activeStatuses are the order states still working at the exchange.
var activeStatuses = map[model.OrderStatus]bool{
	model.OrderStatusPendingSubmit: true,
	model.OrderStatusSubmitted:     true,
	model.OrderStatusPartFilled:    true,
}
