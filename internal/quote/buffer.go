// Package quote owns the local tick state: the append-only per-instrument
// buffer, the subscription registry, and historical gap recovery.
package quote

import (
	"sort"
	"sync"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/infrastructure"
	"github.com/MinJyun/FuturesTrade/internal/model"
)

// TickBuffer stores normalized ticks per (market, code). Live ticks arrive on
// the push-callback path already time-ordered, so Record is an amortized O(1)
// append; Backfill inserts recovered history strictly below the earliest live
// tick so live data is never reordered. Readers only ever see snapshots.
type TickBuffer struct {
	mu     sync.RWMutex
	series map[model.MarketClass]map[string][]model.Tick
}

func NewTickBuffer() *TickBuffer {
	return &TickBuffer{
		series: map[model.MarketClass]map[string][]model.Tick{
			model.MarketEquity:     {},
			model.MarketDerivative: {},
		},
	}
}

// Record appends a live tick, keeping the series non-decreasing in timestamp.
// Out-of-order arrivals are placed by binary search; ties keep arrival order.
func (b *TickBuffer) Record(tick model.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byCode := b.series[tick.Market]
	if byCode == nil {
		byCode = make(map[string][]model.Tick)
		b.series[tick.Market] = byCode
	}

	s := byCode[tick.Code]
	if n := len(s); n == 0 || !tick.Timestamp.Before(s[n-1].Timestamp) {
		byCode[tick.Code] = append(s, tick)
	} else {
		i := sort.Search(len(s), func(i int) bool {
			return s[i].Timestamp.After(tick.Timestamp)
		})
		s = append(s, model.Tick{})
		copy(s[i+1:], s[i:])
		s[i] = tick
		byCode[tick.Code] = s
	}

	infrastructure.TicksIngested.WithLabelValues(string(tick.Market), tick.Code).Inc()
}

// Backfill prepends recovered history for a code. Only ticks strictly before
// the earliest already-buffered timestamp are accepted; the live stream is
// authoritative for any timestamp it has covered.
func (b *TickBuffer) Backfill(market model.MarketClass, code string, ticks []model.Tick) int {
	if len(ticks) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	byCode := b.series[market]
	if byCode == nil {
		byCode = make(map[string][]model.Tick)
		b.series[market] = byCode
	}

	live := byCode[code]
	accepted := ticks
	if len(live) > 0 {
		first := live[0].Timestamp
		cut := sort.Search(len(ticks), func(i int) bool {
			return !ticks[i].Timestamp.Before(first)
		})
		accepted = ticks[:cut]
	}
	if len(accepted) == 0 {
		return 0
	}

	merged := make([]model.Tick, 0, len(accepted)+len(live))
	merged = append(merged, accepted...)
	merged = append(merged, live...)
	byCode[code] = merged

	infrastructure.TicksRecovered.WithLabelValues(string(market), code).Add(float64(len(accepted)))
	return len(accepted)
}

// Snapshot returns a copy of the current series. An unknown code yields an
// empty slice: a not-yet-subscribed instrument is a legitimate initial state.
func (b *TickBuffer) Snapshot(market model.MarketClass, code string) []model.Tick {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.series[market][code]
	out := make([]model.Tick, len(s))
	copy(out, s)
	return out
}

// First returns the earliest buffered tick for a code, if any.
func (b *TickBuffer) First(market model.MarketClass, code string) (model.Tick, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.series[market][code]
	if len(s) == 0 {
		return model.Tick{}, false
	}
	return s[0], true
}

// Len reports the number of buffered ticks for a code.
func (b *TickBuffer) Len(market model.MarketClass, code string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.series[market][code])
}

// Aggregate folds the current snapshot into OHLCV bars, grouping by
// timestamps truncated to unit. Groups keep first-seen order, so the result
// is deterministic for a given snapshot and unit.
func (b *TickBuffer) Aggregate(market model.MarketClass, code string, unit time.Duration) []model.KBar {
	return AggregateTicks(b.Snapshot(market, code), unit)
}

// AggregateTicks is the pure aggregation used by Aggregate and the replay
// engine: open=first, high=max, low=min, close=last, volume=sum per bucket.
func AggregateTicks(ticks []model.Tick, unit time.Duration) []model.KBar {
	bars := make([]model.KBar, 0)
	index := make(map[time.Time]int)

	for _, tick := range ticks {
		bucket := tick.Timestamp.Truncate(unit)
		i, ok := index[bucket]
		if !ok {
			index[bucket] = len(bars)
			bars = append(bars, model.KBar{
				Code:        tick.Code,
				Market:      tick.Market,
				BucketStart: bucket,
				Open:        tick.Price,
				High:        tick.Price,
				Low:         tick.Price,
				Close:       tick.Price,
				Volume:      tick.Volume,
			})
			continue
		}

		bar := &bars[i]
		if tick.Price.GreaterThan(bar.High) {
			bar.High = tick.Price
		}
		if tick.Price.LessThan(bar.Low) {
			bar.Low = tick.Price
		}
		bar.Close = tick.Price
		bar.Volume += tick.Volume
	}

	return bars
}
