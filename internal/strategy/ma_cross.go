package strategy

import (
	"sync"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
)

// MACrossStrategy 雙均線策略
type MACrossStrategy struct {
	mu          sync.Mutex
	bars        []model.KBar
	shortPeriod int
	longPeriod  int
	lastAction  Action
}

func NewMACrossStrategy(shortPeriod, longPeriod int) *MACrossStrategy {
	return &MACrossStrategy{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		bars:        make([]model.KBar, 0),
		lastAction:  ActionHold,
	}
}

func (s *MACrossStrategy) Name() string {
	return "MA_Cross"
}

func (s *MACrossStrategy) OnBar(bar model.KBar) Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bars = append(s.bars, bar)
	if len(s.bars) > s.longPeriod+1 {
		s.bars = s.bars[1:]
	}

	if len(s.bars) < s.longPeriod+1 {
		return ActionHold
	}

	shortMA := s.movingAverage(s.shortPeriod, 0)
	longMA := s.movingAverage(s.longPeriod, 0)
	prevShortMA := s.movingAverage(s.shortPeriod, 1)
	prevLongMA := s.movingAverage(s.longPeriod, 1)

	// Golden Cross
	if prevShortMA.LessThanOrEqual(prevLongMA) && shortMA.GreaterThan(longMA) {
		s.lastAction = ActionBuy
		return ActionBuy
	}
	// Death Cross
	if prevShortMA.GreaterThanOrEqual(prevLongMA) && shortMA.LessThan(longMA) {
		s.lastAction = ActionSell
		return ActionSell
	}

	return ActionHold
}

func (s *MACrossStrategy) movingAverage(period int, offset int) decimal.Decimal {
	sum := decimal.Zero
	end := len(s.bars) - offset
	start := end - period
	for i := start; i < end; i++ {
		sum = sum.Add(s.bars[i].Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
