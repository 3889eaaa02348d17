package bot

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/trading"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestBot(t *testing.T) (*Bot, *gateway.SimGateway) {
	t.Helper()
	logger := zap.NewNop()
	sim := gateway.NewSimGateway(logger)
	orders := trading.NewOrderGateway(sim, logger)

	return &Bot{
		token:      "test-token",
		chatID:     "42",
		simulation: true,
		orders:     orders,
		gw:         sim,
		client:     &http.Client{Timeout: time.Second},
		logger:     logger,
	}, sim
}

func TestBot_RequiresCredentials(t *testing.T) {
	logger := zap.NewNop()
	sim := gateway.NewSimGateway(logger)
	orders := trading.NewOrderGateway(sim, logger)

	_, err := New("", "42", true, orders, sim, logger)
	assert.Error(t, err)
	_, err = New("token", "", true, orders, sim, logger)
	assert.Error(t, err)
	b, err := New("token", "42", true, orders, sim, logger)
	assert.NoError(t, err)
	assert.NotNil(t, b)
}

func TestBot_Help(t *testing.T) {
	b, _ := newTestBot(t)
	reply := b.handleCommand(context.Background(), "/help")
	assert.Contains(t, reply, "/order")
	assert.Contains(t, reply, "SIMULATED")

	assert.Equal(t, reply, b.handleCommand(context.Background(), "/start"))
}

func TestBot_UnknownCommand(t *testing.T) {
	b, _ := newTestBot(t)
	assert.Contains(t, b.handleCommand(context.Background(), "/frobnicate"), "Unknown command")
	assert.Empty(t, b.handleCommand(context.Background(), "   "))
}

func TestBot_OrderLifecycle(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	assert.Contains(t, b.handleCommand(ctx, "/list"), "No active orders")

	reply := b.handleCommand(ctx, "/order TMFR1 buy 33800 1")
	assert.Contains(t, reply, "✅")

	listed := b.handleCommand(ctx, "/list")
	assert.Contains(t, listed, "TMFR1")
	assert.Contains(t, listed, "buy 1 @ 33800")

	// extract the order id from the placement reply
	var orderID string
	for _, line := range strings.Split(reply, "\n") {
		if strings.HasPrefix(line, "ID: ") {
			orderID = strings.Trim(strings.TrimPrefix(line, "ID: "), "`")
		}
	}
	assert.NotEmpty(t, orderID)

	assert.Contains(t, b.handleCommand(ctx, "/update "+orderID+" 33900"), "✏️")
	assert.Contains(t, b.handleCommand(ctx, "/cancel "+orderID), "🗑️")
	assert.Contains(t, b.handleCommand(ctx, "/list"), "No active orders")
}

func TestBot_OrderValidation(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	assert.Contains(t, b.handleCommand(ctx, "/order"), "Usage")
	assert.Contains(t, b.handleCommand(ctx, "/order TMFR1 hold 33800 1"), "buy or sell")
	assert.Contains(t, b.handleCommand(ctx, "/order TMFR1 buy abc 1"), "Invalid price")
	assert.Contains(t, b.handleCommand(ctx, "/order TMFR1 buy 33800 0"), "Invalid quantity")
	assert.Contains(t, b.handleCommand(ctx, "/order NOPE buy 33800 1"), "no contract found")
}

func TestBot_CancelAll(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, "/order TMFR1 buy 33800 1")
	b.handleCommand(ctx, "/order TXFR1 sell 20100 2")

	assert.Contains(t, b.handleCommand(ctx, "/cancelall"), "2 order(s)")
	assert.Contains(t, b.handleCommand(ctx, "/list"), "No active orders")
}

func TestBot_UpdateUnknownOrder(t *testing.T) {
	b, _ := newTestBot(t)
	reply := b.handleCommand(context.Background(), "/update deadbeef 100")
	assert.Contains(t, reply, "❌")
}

func TestBot_Info(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	reply := b.handleCommand(ctx, "/info txfr1")
	assert.Contains(t, reply, "TAIEX Futures R1")

	assert.Contains(t, b.handleCommand(ctx, "/info 2330"), "TSMC")
	assert.Contains(t, b.handleCommand(ctx, "/info ZZZZ"), "No results")
	assert.Contains(t, b.handleCommand(ctx, "/info"), "Usage")
}
