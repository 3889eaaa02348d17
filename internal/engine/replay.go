// Package engine replays recorded bars through a bar strategy and scores the
// outcome. Replays trade whole contracts against bar closes; fills are
// assumed at the close of the signalling bar.
package engine

import (
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/strategy"
	"github.com/shopspring/decimal"
)

type Replayer struct {
	strategy    strategy.BarStrategy
	balance     decimal.Decimal
	lots        int64
	position    int64
	costBasis   decimal.Decimal
	trades      []model.SimulatedTrade
	equityCurve []decimal.Decimal
}

// NewReplayer trades a fixed number of lots per entry out of the given
// starting balance.
func NewReplayer(strat strategy.BarStrategy, initialBalance decimal.Decimal, lots int64) *Replayer {
	if lots <= 0 {
		lots = 1
	}
	return &Replayer{
		strategy:    strat,
		balance:     initialBalance,
		lots:        lots,
		trades:      make([]model.SimulatedTrade, 0),
		equityCurve: make([]decimal.Decimal, 0),
	}
}

func (r *Replayer) Run(bars []model.KBar) model.ReplayReport {
	initialBalance := r.balance

	for _, bar := range bars {
		action := r.strategy.OnBar(bar)

		if action == strategy.ActionBuy && r.position == 0 {
			r.buy(bar)
		} else if action == strategy.ActionSell && r.position > 0 {
			r.sell(bar)
		}

		equity := r.balance.Add(decimal.NewFromInt(r.position).Mul(bar.Close))
		r.equityCurve = append(r.equityCurve, equity)
	}

	// liquidate anything still open at the last close
	if r.position > 0 && len(bars) > 0 {
		r.sell(bars[len(bars)-1])
	}

	totalReturn := decimal.Zero
	if initialBalance.IsPositive() {
		totalReturn = r.balance.Sub(initialBalance).Div(initialBalance)
	}
	winRate, totalProfit := r.stats()

	return model.ReplayReport{
		StrategyName:   r.strategy.Name(),
		TotalTrades:    len(r.trades),
		WinRate:        winRate,
		TotalReturn:    totalReturn,
		TotalProfit:    totalProfit,
		MaxDrawdown:    r.maxDrawdown(),
		InitialBalance: initialBalance,
		FinalBalance:   r.balance,
		TradesLog:      r.trades,
	}
}

func (r *Replayer) buy(bar model.KBar) {
	cost := bar.Close.Mul(decimal.NewFromInt(r.lots))
	if cost.GreaterThan(r.balance) {
		return
	}

	r.balance = r.balance.Sub(cost)
	r.position = r.lots
	r.costBasis = bar.Close

	r.trades = append(r.trades, model.SimulatedTrade{
		Time:  bar.BucketStart,
		Code:  bar.Code,
		Side:  model.ActionBuy,
		Price: bar.Close,
		Size:  r.lots,
	})
}

func (r *Replayer) sell(bar model.KBar) {
	size := r.position
	proceeds := bar.Close.Mul(decimal.NewFromInt(size))
	pnl := bar.Close.Sub(r.costBasis).Mul(decimal.NewFromInt(size))

	r.balance = r.balance.Add(proceeds)
	r.position = 0
	r.costBasis = decimal.Zero

	r.trades = append(r.trades, model.SimulatedTrade{
		Time:  bar.BucketStart,
		Code:  bar.Code,
		Side:  model.ActionSell,
		Price: bar.Close,
		Size:  size,
		PnL:   pnl,
	})
}

func (r *Replayer) maxDrawdown() float64 {
	if len(r.equityCurve) == 0 {
		return 0
	}
	maxEquity := r.equityCurve[0]
	maxDD := decimal.Zero
	for _, equity := range r.equityCurve {
		if equity.GreaterThan(maxEquity) {
			maxEquity = equity
		}
		if maxEquity.IsPositive() {
			dd := maxEquity.Sub(equity).Div(maxEquity)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
			}
		}
	}
	out, _ := maxDD.Float64()
	return out
}

func (r *Replayer) stats() (float64, decimal.Decimal) {
	wins, exits := 0, 0
	totalProfit := decimal.Zero
	for _, t := range r.trades {
		if t.Side != model.ActionSell {
			continue
		}
		exits++
		if t.PnL.GreaterThan(decimal.Zero) {
			wins++
		}
		totalProfit = totalProfit.Add(t.PnL)
	}
	if exits == 0 {
		return 0, decimal.Zero
	}
	return float64(wins) / float64(exits), totalProfit
}
