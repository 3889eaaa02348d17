package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"go.uber.org/zap"
)

const kbarUnit = time.Minute

// startRelay republishes the normalized tick flow. Raw ticks go out on
// ticks.raw.<market>.<code> as they arrive; completed one-minute bars go out
// on ticks.kbar.1m.<code> once their bucket closes. Both feeds reach the
// websocket hub, and JetStream as well when NATS is configured.
func (a *App) startRelay(ctx context.Context) {
	a.Gateway.OnTick(func(market model.MarketClass, tick model.Tick) {
		data, err := json.Marshal(tick)
		if err != nil {
			a.Logger.Error("failed to marshal tick", zap.Error(err))
			return
		}

		subject := fmt.Sprintf("ticks.raw.%s.%s", market, tick.Code)
		a.PushGateway.Publish(subject, data)
		if a.JS != nil {
			if _, err := a.JS.Publish(subject, data); err != nil {
				a.Logger.Error("failed to publish to NATS", zap.String("subject", subject), zap.Error(err))
			}
		}
	})

	go a.publishBars(ctx)
}

func (a *App) publishBars(ctx context.Context) {
	ticker := time.NewTicker(kbarUnit)
	defer ticker.Stop()

	published := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Truncate(kbarUnit)
			for _, market := range []model.MarketClass{model.MarketEquity, model.MarketDerivative} {
				for _, code := range a.Quotes.Active(market) {
					a.publishLatestBar(market, code, cutoff, published)
				}
			}
		}
	}
}

// latestCompletedBar picks the most recent bar whose bucket closed before
// the cutoff. Bars still accumulating ticks are never published.
func latestCompletedBar(bars []model.KBar, cutoff time.Time) *model.KBar {
	var latest *model.KBar
	for i := range bars {
		if bars[i].BucketStart.Before(cutoff) {
			if latest == nil || bars[i].BucketStart.After(latest.BucketStart) {
				latest = &bars[i]
			}
		}
	}
	return latest
}

// publishLatestBar emits the most recent completed bar that has not been
// sent yet.
func (a *App) publishLatestBar(market model.MarketClass, code string, cutoff time.Time, published map[string]time.Time) {
	latest := latestCompletedBar(a.Buffer.Aggregate(market, code, kbarUnit), cutoff)
	if latest == nil {
		return
	}

	key := string(market) + "|" + code
	if last, ok := published[key]; ok && !latest.BucketStart.After(last) {
		return
	}
	published[key] = latest.BucketStart

	data, err := json.Marshal(latest)
	if err != nil {
		a.Logger.Error("failed to marshal bar", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("ticks.kbar.1m.%s", code)
	a.PushGateway.Publish(subject, data)
	if a.JS != nil {
		if _, err := a.JS.Publish(subject, data); err != nil {
			a.Logger.Error("failed to publish to NATS", zap.String("subject", subject), zap.Error(err))
		}
	}
}
