package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BridgeGateway talks to the local broker sidecar, which fronts the real
// brokerage session. REST carries lookups and order actions; a websocket at
// /stream delivers tick and deal push events.
type BridgeGateway struct {
	Dispatcher

	base   string
	hc     *http.Client
	logger *zap.Logger

	apiKey    string
	secretKey string
}

func NewBridgeGateway(base, apiKey, secretKey string, logger *zap.Logger) *BridgeGateway {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	return &BridgeGateway{
		base:      base,
		hc:        &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
		apiKey:    apiKey,
		secretKey: secretKey,
	}
}

func (b *BridgeGateway) Login(ctx context.Context) error {
	body := map[string]string{"api_key": b.apiKey, "secret_key": b.secretKey}
	return b.post(ctx, "/session/login", body, nil)
}

func (b *BridgeGateway) LookupContract(code string, market model.MarketClass) (*model.Contract, error) {
	u := fmt.Sprintf("/contracts/%s/%s", market, url.PathEscape(code))
	var out model.Contract
	err := b.get(context.Background(), u, &out)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (b *BridgeGateway) SubscribeTick(contract *model.Contract) error {
	body := map[string]string{"code": contract.Code, "market": string(contract.Market)}
	return b.post(context.Background(), "/quote/subscribe", body, nil)
}

func (b *BridgeGateway) UnsubscribeTick(contract *model.Contract) error {
	body := map[string]string{"code": contract.Code, "market": string(contract.Market)}
	return b.post(context.Background(), "/quote/unsubscribe", body, nil)
}

func (b *BridgeGateway) FetchTicks(ctx context.Context, contract *model.Contract, date string) ([]model.Tick, error) {
	q := url.Values{}
	q.Set("code", contract.Code)
	q.Set("market", string(contract.Market))
	if date != "" {
		q.Set("date", date)
	}

	// columnar payload, one array per field
	var out struct {
		TS       []int64   `json:"ts"` // epoch nanoseconds
		Close    []float64 `json:"close"`
		Volume   []int64   `json:"volume"`
		TickType []int8    `json:"tick_type"`
	}
	if err := b.get(ctx, "/quote/ticks?"+q.Encode(), &out); err != nil {
		return nil, err
	}

	ticks := make([]model.Tick, 0, len(out.TS))
	for i, ts := range out.TS {
		ticks = append(ticks, model.Tick{
			Code:      contract.Code,
			Market:    contract.Market,
			Price:     decimal.NewFromFloat(out.Close[i]),
			Volume:    out.Volume[i],
			TickType:  model.TickType(out.TickType[i]),
			Timestamp: time.Unix(0, ts).Truncate(time.Microsecond),
		})
	}
	return ticks, nil
}

func (b *BridgeGateway) PlaceOrder(ctx context.Context, contract *model.Contract, req model.OrderRequest) (*model.Order, error) {
	var out model.Order
	if err := b.post(ctx, "/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BridgeGateway) CancelOrder(ctx context.Context, orderID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.base+"/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return err
	}
	return b.do(httpReq, nil)
}

func (b *BridgeGateway) UpdateOrderPrice(ctx context.Context, orderID string, price decimal.Decimal) error {
	body := map[string]string{"price": price.String()}
	return b.post(ctx, "/orders/"+url.PathEscape(orderID)+"/price", body, nil)
}

func (b *BridgeGateway) RefreshStatus(ctx context.Context) error {
	return b.post(ctx, "/orders/refresh", nil, nil)
}

func (b *BridgeGateway) ListOrders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	if err := b.get(ctx, "/orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BridgeGateway) ListPositions(ctx context.Context, market model.MarketClass) ([]model.Position, error) {
	var out []model.Position
	if err := b.get(ctx, "/positions?market="+string(market), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// streamEvent is the envelope for push events from /stream.
type streamEvent struct {
	Type string      `json:"type"` // "tick" or "deal"
	Tick *model.Tick `json:"tick,omitempty"`
	Deal *model.Deal `json:"deal,omitempty"`
}

// RunStream keeps the push websocket open until ctx is done, reconnecting
// with capped exponential backoff.
func (b *BridgeGateway) RunStream(ctx context.Context) {
	wsURL := strings.Replace(b.base, "http", "ws", 1) + "/stream"
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b.logger.Info("connecting to bridge stream", zap.String("url", wsURL))
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			b.logger.Error("failed to connect to bridge stream", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = increaseBackoff(backoff)
			continue
		}

		backoff = time.Second
		if err := b.readStream(ctx, conn); err != nil {
			b.logger.Error("bridge stream closed", zap.Error(err))
		}
		conn.Close()
	}
}

func (b *BridgeGateway) readStream(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event streamEvent
		if err := json.Unmarshal(message, &event); err != nil {
			b.logger.Error("failed to unmarshal stream event", zap.Error(err))
			continue
		}

		switch {
		case event.Type == "tick" && event.Tick != nil:
			b.EmitTick(event.Tick.Market, *event.Tick)
		case event.Type == "deal" && event.Deal != nil:
			b.EmitTrade(*event.Deal)
		}
	}
}

func increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("bridge returned %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (b *BridgeGateway) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+path, nil)
	if err != nil {
		return err
	}
	return b.do(req, out)
}

func (b *BridgeGateway) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *BridgeGateway) do(req *http.Request, out interface{}) error {
	res, err := b.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		data, _ := io.ReadAll(res.Body)
		return &statusError{code: res.StatusCode, body: string(data)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
