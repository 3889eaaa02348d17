// Package record appends closed-trade rows to an external spreadsheet
// webhook. Best-effort only: a failed append never disturbs the strategy
// that produced the trade.
package record

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeRecord is one spreadsheet row describing a closed round trip.
type TradeRecord struct {
	CloseDate string          `json:"close_date"`
	EntryDate string          `json:"entry_date"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	Direction model.Direction `json:"direction"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
}

// NewTradeRecord orients entry/exit prices by position direction: a long
// bought at entry and sold at exit, a short the other way around.
func NewTradeRecord(symbol string, qty int64, direction model.Direction, entryDate string, entry, exit decimal.Decimal) TradeRecord {
	rec := TradeRecord{
		CloseDate: time.Now().Format("2006/01/02"),
		EntryDate: entryDate,
		Symbol:    symbol,
		Quantity:  qty,
		Direction: direction,
	}
	if direction == model.DirectionLong {
		rec.BuyPrice, rec.SellPrice = entry, exit
	} else {
		rec.BuyPrice, rec.SellPrice = exit, entry
	}
	return rec
}

type Sink struct {
	url    string
	tab    string
	client *http.Client
	logger *zap.Logger
}

func NewSink(url, tab string, logger *zap.Logger) *Sink {
	return &Sink{
		url:    url,
		tab:    tab,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Enabled reports whether a webhook target is configured.
func (s *Sink) Enabled() bool { return s.url != "" }

// Append posts one row. Errors are logged and swallowed.
func (s *Sink) Append(rec TradeRecord) {
	if !s.Enabled() {
		return
	}

	payload := struct {
		Tab string      `json:"tab"`
		Row TradeRecord `json:"row"`
	}{Tab: s.tab, Row: rec}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal trade record", zap.Error(err))
		return
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(data))
	if err != nil {
		s.logger.Error("failed to append trade record", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Error("record sink rejected row", zap.Int("status", resp.StatusCode))
		return
	}
	s.logger.Info("trade record appended", zap.String("symbol", rec.Symbol))
}
