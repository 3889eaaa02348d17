package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/infrastructure"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/notify"
	"github.com/MinJyun/FuturesTrade/internal/quote"
	"github.com/MinJyun/FuturesTrade/internal/record"
	"github.com/MinJyun/FuturesTrade/internal/trading"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OcoState string

const (
	StateVerifying  OcoState = "verifying"
	StateArmedTP    OcoState = "armed_tp"
	StateMonitoring OcoState = "monitoring"
	StateTriggering OcoState = "triggering"
	StateClosed     OcoState = "closed"
	StateAborted    OcoState = "aborted"
)

const pollInterval = 500 * time.Millisecond

type OcoConfig struct {
	Symbol          string
	Market          model.MarketClass
	Quantity        int64
	Direction       model.Direction
	StopPrice       decimal.Decimal
	TakeProfitPrice decimal.Decimal
}

// OcoStrategy guards a verified position with a resting take-profit limit
// order and a tick-watched stop. The first qualifying tick cancels the
// take-profit and fires a market stop order; whichever leg fills first
// closes the strategy. Both the tick path and the fill path race to close
// the position, so every terminal transition goes through a compare-and-set.
type OcoStrategy struct {
	cfg      OcoConfig
	orders   *trading.OrderGateway
	quotes   *quote.Registry
	gw       gateway.Gateway
	notifier *notify.Notifier
	recorder *record.Sink
	logger   *zap.Logger

	running        atomic.Bool
	positionClosed atomic.Bool
	completed      atomic.Bool
	anomalies      atomic.Int64

	mu         sync.Mutex
	state      OcoState
	tpOrderID  string
	slOrderID  string
	entryPrice decimal.Decimal
	entryDate  string

	done     chan struct{}
	stopOnce sync.Once
}

func NewOcoStrategy(
	cfg OcoConfig,
	orders *trading.OrderGateway,
	quotes *quote.Registry,
	gw gateway.Gateway,
	notifier *notify.Notifier,
	recorder *record.Sink,
	logger *zap.Logger,
) *OcoStrategy {
	return &OcoStrategy{
		cfg:      cfg,
		orders:   orders,
		quotes:   quotes,
		gw:       gw,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		state:    StateVerifying,
		done:     make(chan struct{}),
	}
}

func (s *OcoStrategy) State() OcoState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *OcoStrategy) setState(state OcoState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Anomalies reports how many second-leg fills this run has observed.
func (s *OcoStrategy) Anomalies() int64 {
	return s.anomalies.Load()
}

// Run drives the state machine to a terminal state. It blocks until the
// position is closed, the run aborts, or ctx is done.
func (s *OcoStrategy) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("oco strategy for %s already running", s.cfg.Symbol)
	}

	s.notifier.Notify("Strategy Started", fmt.Sprintf(
		"Monitoring %s (%s)\nQty: %d\nSL: %s\nTP: %s",
		s.cfg.Symbol, s.cfg.Direction, s.cfg.Quantity, s.cfg.StopPrice, s.cfg.TakeProfitPrice,
	))

	if err := s.verifyPosition(ctx); err != nil {
		return s.abort("Position Check Failed", err)
	}

	s.setState(StateArmedTP)
	if err := s.placeTakeProfit(ctx); err != nil {
		return s.abort("Failed to place TP Order", err)
	}

	// register on the push channel before subscribing so no tick is missed
	s.gw.OnTick(s.onTick)
	s.gw.OnTrade(s.onTrade)

	if err := s.quotes.Subscribe(ctx, []string{s.cfg.Symbol}, s.cfg.Market, false); err != nil {
		// nobody would watch the resting take-profit after this abort
		s.cancelTakeProfit(ctx)
		return s.abort("Tick Subscription Failed", err)
	}
	s.setState(StateMonitoring)
	s.logger.Info("listening for ticks", zap.String("symbol", s.cfg.Symbol))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			if !s.running.Load() {
				return nil
			}
		}
	}
}

func (s *OcoStrategy) verifyPosition(ctx context.Context) error {
	pos, err := s.orders.Position(ctx, s.cfg.Symbol, s.cfg.Market)
	if err != nil {
		return err
	}
	if pos == nil {
		return &trading.PositionMismatchError{Code: s.cfg.Symbol, Reason: "no position held"}
	}
	if pos.AbsQuantity() < s.cfg.Quantity {
		return &trading.PositionMismatchError{
			Code:   s.cfg.Symbol,
			Reason: fmt.Sprintf("insufficient quantity: held %d, required %d", pos.AbsQuantity(), s.cfg.Quantity),
		}
	}
	if pos.Direction() != s.cfg.Direction {
		return &trading.PositionMismatchError{
			Code:   s.cfg.Symbol,
			Reason: fmt.Sprintf("direction mismatch: held %s, strategy %s", pos.Direction(), s.cfg.Direction),
		}
	}

	s.mu.Lock()
	s.entryPrice = pos.Price
	s.entryDate = time.Now().Format("2006/01/02")
	s.mu.Unlock()

	s.logger.Info("position verified",
		zap.String("symbol", s.cfg.Symbol),
		zap.String("direction", string(pos.Direction())),
		zap.Int64("quantity", pos.AbsQuantity()),
		zap.String("entry_price", pos.Price.String()),
	)
	return nil
}

// closingAction is the side that flattens the guarded position.
func (s *OcoStrategy) closingAction() model.OrderAction {
	opening := model.ActionBuy
	if s.cfg.Direction == model.DirectionShort {
		opening = model.ActionSell
	}
	return opening.Opposite()
}

// cancelTakeProfit pulls the resting take-profit leg if one was placed. A
// failed cancel is logged and not fatal; the fill path treats a later
// take-profit fill as the anomaly it is.
func (s *OcoStrategy) cancelTakeProfit(ctx context.Context) {
	s.mu.Lock()
	tpID := s.tpOrderID
	s.mu.Unlock()
	if tpID == "" {
		return
	}
	if err := s.orders.Cancel(ctx, tpID); err != nil {
		s.logger.Error("failed to cancel take-profit order", zap.String("order_id", tpID), zap.Error(err))
	}
}

func (s *OcoStrategy) placeTakeProfit(ctx context.Context) error {
	ord, err := s.orders.Place(ctx, model.OrderRequest{
		Code:      s.cfg.Symbol,
		Market:    s.cfg.Market,
		Action:    s.closingAction(),
		Price:     s.cfg.TakeProfitPrice,
		Quantity:  s.cfg.Quantity,
		PriceType: model.PriceTypeLimit,
		OrderType: model.OrderTypeROD,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tpOrderID = ord.ID
	s.mu.Unlock()

	s.notifier.Notify("TP Order Placed", fmt.Sprintf("Order ID: %s\nPrice: %s", ord.ID, s.cfg.TakeProfitPrice))
	return nil
}

// onTick runs on the push-callback path. It only compares and sets flags;
// the blocking trigger work is handed off so the delivery channel never
// stalls.
func (s *OcoStrategy) onTick(market model.MarketClass, tick model.Tick) {
	if !s.running.Load() || s.positionClosed.Load() {
		return
	}
	if market != s.cfg.Market || tick.Code != s.cfg.Symbol {
		return
	}

	var hit bool
	if s.cfg.Direction == model.DirectionLong {
		hit = tick.Price.LessThanOrEqual(s.cfg.StopPrice)
	} else {
		hit = tick.Price.GreaterThanOrEqual(s.cfg.StopPrice)
	}
	if !hit {
		return
	}

	// exactly-once gate: a burst of closely spaced qualifying ticks and the
	// fill path all funnel through this compare-and-set
	if !s.positionClosed.CompareAndSwap(false, true) {
		return
	}

	s.setState(StateTriggering)
	infrastructure.StopTriggers.Inc()
	go s.executeStop(tick.Price)
}

// executeStop cancels the take-profit leg and submits the market stop. A
// failed cancel is logged and execution proceeds: if both legs end up
// filling, the fill path reports the second one as an anomaly. A failed
// stop submission is fatal for automation and left for the operator; a
// risk-closing order is never retried blindly.
func (s *OcoStrategy) executeStop(triggerPrice decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.notifier.Notify("⚡ Stop Loss Triggered", fmt.Sprintf("Price %s crossed SL %s", triggerPrice, s.cfg.StopPrice))

	s.cancelTakeProfit(ctx)

	// the cancel may have lost to a take-profit fill; once the fill path has
	// closed the run the position is flat and a market stop would reopen it
	// on the other side
	if s.completed.Load() {
		s.logger.Info("stop order skipped, take-profit filled during cancel",
			zap.String("symbol", s.cfg.Symbol))
		s.notifier.Notify("Stop Order Skipped", "Take-profit filled while cancelling; position already closed")
		return
	}

	ord, err := s.orders.Place(ctx, model.OrderRequest{
		Code:      s.cfg.Symbol,
		Market:    s.cfg.Market,
		Action:    s.closingAction(),
		Price:     triggerPrice,
		Quantity:  s.cfg.Quantity,
		PriceType: model.PriceTypeMarket,
		OrderType: model.OrderTypeROD,
	})
	if err != nil {
		s.logger.Error("stop order submission failed, manual intervention required",
			zap.String("symbol", s.cfg.Symbol), zap.Error(err))
		s.notifier.Notify("❌ SL Order Execution Failed", err.Error())
		return
	}

	s.mu.Lock()
	s.slOrderID = ord.ID
	s.mu.Unlock()

	s.notifier.Notify("SL Order Sent", fmt.Sprintf("Market order %s placed", ord.ID))
}

// onTrade consumes fill notifications from the push channel. The first
// matching leg closes the strategy; a fill for the other leg afterwards
// means the cancel race was lost and is reported as an anomaly.
func (s *OcoStrategy) onTrade(deal model.Deal) {
	if !s.running.Load() {
		return
	}

	s.mu.Lock()
	tpID, slID := s.tpOrderID, s.slOrderID
	s.mu.Unlock()

	var leg string
	switch deal.OrderID {
	case "":
		return
	case tpID:
		leg = "take-profit"
	case slID:
		leg = "stop"
	default:
		return
	}

	// the fill path and the tick path contend on the same guard: a
	// take-profit fill that wins it closes the monitoring window, so a
	// concurrent qualifying tick can no longer fire the stop. A stop-leg
	// fill arrives with the guard already taken by the tick path.
	if leg == "take-profit" {
		s.positionClosed.CompareAndSwap(false, true)
	}

	if s.completed.CompareAndSwap(false, true) {
		s.positionClosed.Store(true)
		s.setState(StateClosed)
		s.notifier.Notify("Position Closed", fmt.Sprintf("%s order %s filled at %s", leg, deal.OrderID, deal.Price))
		s.logTradeRecord(deal.Price)
		s.Stop()
		return
	}

	s.anomalies.Add(1)
	infrastructure.FillAnomalies.Inc()
	anomaly := &trading.AnomalyError{
		OrderID: deal.OrderID,
		Detail:  fmt.Sprintf("%s leg filled after position already closed, possible double fill", leg),
	}
	s.logger.Error("fill anomaly", zap.String("symbol", s.cfg.Symbol), zap.Error(anomaly))
	s.notifier.Notify("❌ Fill Anomaly", anomaly.Error())
}

func (s *OcoStrategy) logTradeRecord(exitPrice decimal.Decimal) {
	if s.recorder == nil || !s.recorder.Enabled() {
		return
	}
	s.mu.Lock()
	entry, entryDate := s.entryPrice, s.entryDate
	s.mu.Unlock()

	s.recorder.Append(record.NewTradeRecord(
		s.cfg.Symbol, s.cfg.Quantity, s.cfg.Direction, entryDate, entry, exitPrice,
	))
}

func (s *OcoStrategy) abort(title string, err error) error {
	s.setState(StateAborted)
	s.notifier.Notify("❌ "+title, err.Error())
	s.Stop()
	return err
}

// Stop unsubscribes ticks and marks the strategy inactive. Idempotent and
// callable from any state.
func (s *OcoStrategy) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.quotes.Unsubscribe(ctx, []string{s.cfg.Symbol}, s.cfg.Market); err != nil {
			s.logger.Warn("unsubscribe on stop failed", zap.Error(err))
		}
		close(s.done)
		s.logger.Info("strategy stopped", zap.String("symbol", s.cfg.Symbol))
	})
}
