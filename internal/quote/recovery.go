package quote

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"go.uber.org/zap"
)

// extendedSessionCutoffHour is when the derivative day session has settled
// and the overnight session begins. The default "last session" fetch stops
// before this point, leaving a gap the same-day fetch closes.
const extendedSessionCutoffHour = 15

// GapRecovery fetches the last complete session's ticks and, during the
// extended session, today's supplementary ticks, merged and de-duplicated
// by timestamp.
type GapRecovery struct {
	gw     gateway.Gateway
	logger *zap.Logger
	now    func() time.Time
}

func NewGapRecovery(gw gateway.Gateway, logger *zap.Logger) *GapRecovery {
	return &GapRecovery{gw: gw, logger: logger, now: time.Now}
}

// Fetch returns a merged, time-sorted tick sequence for the contract. An
// empty result is not an error: newly listed instruments have no history.
func (r *GapRecovery) Fetch(ctx context.Context, contract *model.Contract) ([]model.Tick, error) {
	main, err := r.gw.FetchTicks(ctx, contract, "")
	if err != nil {
		return nil, fmt.Errorf("fetch last session ticks: %w", err)
	}

	now := r.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), extendedSessionCutoffHour, 0, 0, 0, now.Location())

	needsToday := now.Hour() >= extendedSessionCutoffHour &&
		(len(main) == 0 || main[len(main)-1].Timestamp.Before(cutoff))

	if !needsToday {
		return sortTicks(main), nil
	}

	r.logger.Info("extended session detected, fetching today's ticks",
		zap.String("code", contract.Code))

	today, err := r.gw.FetchTicks(ctx, contract, now.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("fetch today ticks: %w", err)
	}

	return mergeTicks(main, today), nil
}

// mergeTicks unions two fetches keyed by timestamp, preferring the
// first-seen record on collision, and sorts the result.
func mergeTicks(first, second []model.Tick) []model.Tick {
	seen := make(map[int64]bool, len(first)+len(second))
	merged := make([]model.Tick, 0, len(first)+len(second))
	for _, t := range first {
		key := t.Timestamp.UnixMicro()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, t)
	}
	for _, t := range second {
		key := t.Timestamp.UnixMicro()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, t)
	}
	return sortTicks(merged)
}

func sortTicks(ticks []model.Tick) []model.Tick {
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})
	return ticks
}
