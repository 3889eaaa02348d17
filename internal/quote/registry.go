package quote

import (
	"context"
	"fmt"
	"sync"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/infrastructure"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"go.uber.org/zap"
)

// Registry tracks which codes are subscribed per market class. Its active
// set is the single source of truth consulted before any gateway subscribe
// or unsubscribe call; every operation is idempotent.
type Registry struct {
	mu       sync.Mutex
	gw       gateway.Gateway
	buffer   *TickBuffer
	recovery *GapRecovery
	logger   *zap.Logger
	active   map[model.MarketClass]map[string]bool
}

func NewRegistry(gw gateway.Gateway, buffer *TickBuffer, recovery *GapRecovery, logger *zap.Logger) *Registry {
	return &Registry{
		gw:       gw,
		buffer:   buffer,
		recovery: recovery,
		logger:   logger,
		active: map[model.MarketClass]map[string]bool{
			model.MarketEquity:     {},
			model.MarketDerivative: {},
		},
	}
}

// Subscribe activates tick delivery for each code not already active. With
// recover set, history is fetched and merged below the first live tick, so
// ticks delivered between fetch start and subscribe completion are not
// double counted.
func (r *Registry) Subscribe(ctx context.Context, codes []string, market model.MarketClass, recover bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, code := range codes {
		if r.active[market][code] {
			continue
		}

		contract, err := r.gw.LookupContract(code, market)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", code, err)
		}
		if contract == nil {
			r.logger.Warn("skipping unknown contract", zap.String("code", code), zap.String("market", string(market)))
			continue
		}

		if err := r.gw.SubscribeTick(contract); err != nil {
			return fmt.Errorf("subscribe %s: %w", code, err)
		}
		r.active[market][code] = true
		infrastructure.ActiveSubscriptions.WithLabelValues(string(market)).Inc()

		if recover {
			if err := r.recoverInto(ctx, contract); err != nil {
				// live subscription stands; history stays sparse
				r.logger.Error("gap recovery failed", zap.String("code", code), zap.Error(err))
			}
		}
	}
	return nil
}

func (r *Registry) recoverInto(ctx context.Context, contract *model.Contract) error {
	ticks, err := r.recovery.Fetch(ctx, contract)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return nil
	}

	merged := r.buffer.Backfill(contract.Market, contract.Code, ticks)
	r.logger.Info("recovered historical ticks",
		zap.String("code", contract.Code),
		zap.Int("fetched", len(ticks)),
		zap.Int("merged", merged),
	)
	return nil
}

// Unsubscribe deactivates codes; codes not active are no-ops.
func (r *Registry) Unsubscribe(ctx context.Context, codes []string, market model.MarketClass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, code := range codes {
		if !r.active[market][code] {
			continue
		}
		if err := r.unsubscribeLocked(code, market); err != nil {
			return err
		}
	}
	return nil
}

// UnsubscribeAll drains the active set for a market class.
func (r *Registry) UnsubscribeAll(ctx context.Context, market model.MarketClass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code := range r.active[market] {
		if err := r.unsubscribeLocked(code, market); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) unsubscribeLocked(code string, market model.MarketClass) error {
	contract, err := r.gw.LookupContract(code, market)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", code, err)
	}
	if contract != nil {
		if err := r.gw.UnsubscribeTick(contract); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", code, err)
		}
	}
	delete(r.active[market], code)
	infrastructure.ActiveSubscriptions.WithLabelValues(string(market)).Dec()
	return nil
}

// IsSubscribed reports whether a code is currently active.
func (r *Registry) IsSubscribed(code string, market model.MarketClass) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[market][code]
}

// Active lists the currently subscribed codes for a market class.
func (r *Registry) Active(market model.MarketClass) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := make([]string, 0, len(r.active[market]))
	for code := range r.active[market] {
		codes = append(codes, code)
	}
	return codes
}
