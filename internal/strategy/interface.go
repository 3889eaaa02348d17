package strategy

import (
	"context"

	"github.com/MinJyun/FuturesTrade/internal/model"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// BarStrategy consumes completed bars and emits a trading signal. Used by
// the replay engine and bar-driven live strategies.
type BarStrategy interface {
	Name() string
	OnBar(bar model.KBar) Action
}

// Runner is a live strategy bound to the push channel. Run blocks until the
// strategy terminates; Stop is idempotent and callable from any state.
type Runner interface {
	Run(ctx context.Context) error
	Stop()
}
