package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/quote"
	"github.com/MinJyun/FuturesTrade/internal/trading"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maWindow is the number of most recent ticks averaged for the entry signal.
const maWindow = 5

// TickEntryStrategy watches the live tick series and places a single limit
// buy when the price crosses above its short moving average, then
// terminates. Backfilled history counts toward the average so the signal is
// meaningful right after subscription.
type TickEntryStrategy struct {
	quotes *quote.Registry
	buffer *quote.TickBuffer
	orders *trading.OrderGateway
	logger *zap.Logger

	symbol   string
	market   model.MarketClass
	quantity int64

	running  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

func NewTickEntryStrategy(
	quotes *quote.Registry,
	buffer *quote.TickBuffer,
	orders *trading.OrderGateway,
	symbol string,
	market model.MarketClass,
	quantity int64,
	logger *zap.Logger,
) *TickEntryStrategy {
	return &TickEntryStrategy{
		quotes:   quotes,
		buffer:   buffer,
		orders:   orders,
		logger:   logger,
		symbol:   symbol,
		market:   market,
		quantity: quantity,
		done:     make(chan struct{}),
	}
}

func (s *TickEntryStrategy) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("tick entry strategy for %s already running", s.symbol)
	}
	defer s.Stop()

	if err := s.quotes.Subscribe(ctx, []string{s.symbol}, s.market, true); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.symbol, err)
	}
	s.logger.Info("tick entry strategy started", zap.String("symbol", s.symbol))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
		}

		snap := s.buffer.Snapshot(s.market, s.symbol)
		if len(snap) == lastCount {
			continue
		}
		lastCount = len(snap)

		if len(snap) < maWindow {
			s.logger.Debug("not enough ticks for signal", zap.Int("count", len(snap)))
			continue
		}

		ma := movingAverage(snap[len(snap)-maWindow:])
		current := snap[len(snap)-1].Price
		previous := snap[len(snap)-2].Price

		s.logger.Info("signal check",
			zap.Time("ts", snap[len(snap)-1].Timestamp),
			zap.String("current", current.String()),
			zap.String("ma", ma.StringFixed(2)),
			zap.String("previous", previous.String()),
		)

		if previous.LessThan(ma) && current.GreaterThan(ma) {
			s.logger.Info("price crossed above moving average, placing order",
				zap.String("symbol", s.symbol))

			ord, err := s.orders.Place(ctx, model.OrderRequest{
				Code:      s.symbol,
				Market:    s.market,
				Action:    model.ActionBuy,
				Price:     current.Round(2),
				Quantity:  s.quantity,
				PriceType: model.PriceTypeLimit,
				OrderType: model.OrderTypeROD,
			})
			if err != nil {
				return fmt.Errorf("place entry order: %w", err)
			}
			s.logger.Info("entry order placed", zap.String("order_id", ord.ID))
			return nil
		}
	}
}

// Stop unsubscribes every code for the strategy's market class.
func (s *TickEntryStrategy) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.quotes.UnsubscribeAll(ctx, s.market); err != nil {
			s.logger.Warn("unsubscribe on stop failed", zap.Error(err))
		}
		close(s.done)
	})
}

func movingAverage(ticks []model.Tick) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range ticks {
		sum = sum.Add(t.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(ticks))))
}
