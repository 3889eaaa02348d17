package quote

import (
	"testing"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func tickAt(code string, ts time.Time, price float64, volume int64) model.Tick {
	return model.Tick{
		Code:      code,
		Market:    model.MarketDerivative,
		Price:     decimal.NewFromFloat(price),
		Volume:    volume,
		TickType:  model.TickTypeBuy,
		Timestamp: ts,
	}
}

func TestTickBuffer_RecordKeepsOrder(t *testing.T) {
	buf := NewTickBuffer()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	buf.Record(tickAt("TXFR1", base, 20000, 1))
	buf.Record(tickAt("TXFR1", base.Add(2*time.Second), 20002, 1))
	// late arrival lands between the two
	buf.Record(tickAt("TXFR1", base.Add(time.Second), 20001, 1))

	snap := buf.Snapshot(model.MarketDerivative, "TXFR1")
	assert.Len(t, snap, 3)
	for i := 1; i < len(snap); i++ {
		assert.False(t, snap[i].Timestamp.Before(snap[i-1].Timestamp))
	}
	assert.True(t, snap[1].Price.Equal(decimal.NewFromInt(20001)))
}

func TestTickBuffer_SnapshotIsolation(t *testing.T) {
	buf := NewTickBuffer()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	buf.Record(tickAt("TXFR1", base, 20000, 1))

	snap := buf.Snapshot(model.MarketDerivative, "TXFR1")
	buf.Record(tickAt("TXFR1", base.Add(time.Second), 20001, 1))

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, buf.Len(model.MarketDerivative, "TXFR1"))
}

func TestTickBuffer_UnknownCodeIsEmptyNotError(t *testing.T) {
	buf := NewTickBuffer()
	assert.Empty(t, buf.Snapshot(model.MarketEquity, "9999"))
	assert.Empty(t, buf.Aggregate(model.MarketEquity, "9999", time.Minute))
}

func TestTickBuffer_BackfillStaysBelowLiveData(t *testing.T) {
	buf := NewTickBuffer()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	// live ticks arrive first
	buf.Record(tickAt("TXFR1", base.Add(10*time.Second), 20010, 1))
	buf.Record(tickAt("TXFR1", base.Add(11*time.Second), 20011, 1))

	// recovery covers an overlapping window
	history := []model.Tick{
		tickAt("TXFR1", base.Add(1*time.Second), 20001, 1),
		tickAt("TXFR1", base.Add(5*time.Second), 20005, 1),
		tickAt("TXFR1", base.Add(10*time.Second), 99999, 1), // live stream owns this timestamp
		tickAt("TXFR1", base.Add(12*time.Second), 99999, 1),
	}
	merged := buf.Backfill(model.MarketDerivative, "TXFR1", history)
	assert.Equal(t, 2, merged)

	snap := buf.Snapshot(model.MarketDerivative, "TXFR1")
	assert.Len(t, snap, 4)

	seen := make(map[int64]bool)
	for i, tk := range snap {
		if i > 0 {
			assert.False(t, tk.Timestamp.Before(snap[i-1].Timestamp), "series must be non-decreasing")
		}
		assert.False(t, seen[tk.Timestamp.UnixMicro()], "no duplicate timestamps after merge")
		seen[tk.Timestamp.UnixMicro()] = true
	}
	// live tick at +10s kept its live price
	assert.True(t, snap[2].Price.Equal(decimal.NewFromInt(20010)))
}

func TestAggregateTicks_OHLCV(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	ticks := []model.Tick{
		tickAt("TXFR1", base.Add(10*time.Second), 20000, 1),
		tickAt("TXFR1", base.Add(20*time.Second), 20010, 2),
		tickAt("TXFR1", base.Add(30*time.Second), 19990, 3),
		tickAt("TXFR1", base.Add(70*time.Second), 20005, 4), // next bucket
	}

	bars := AggregateTicks(ticks, time.Minute)
	assert.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, base, first.BucketStart)
	assert.True(t, first.Open.Equal(decimal.NewFromInt(20000)))
	assert.True(t, first.High.Equal(decimal.NewFromInt(20010)))
	assert.True(t, first.Low.Equal(decimal.NewFromInt(19990)))
	assert.True(t, first.Close.Equal(decimal.NewFromInt(19990)))
	assert.Equal(t, int64(6), first.Volume)

	second := bars[1]
	assert.Equal(t, base.Add(time.Minute), second.BucketStart)
	assert.Equal(t, int64(4), second.Volume)
}

func TestAggregateTicks_Deterministic(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	ticks := make([]model.Tick, 0, 100)
	for i := 0; i < 100; i++ {
		ticks = append(ticks, tickAt("TXFR1", base.Add(time.Duration(i)*7*time.Second), 20000+float64(i%13), 1))
	}

	a := AggregateTicks(ticks, time.Minute)
	b := AggregateTicks(ticks, time.Minute)
	assert.Equal(t, a, b)
}
