// Package bot runs a long-polling Telegram listener for remote order
// management. Only the configured chat id may issue commands; everything
// else is logged and dropped.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/trading"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const telegramAPI = "https://api.telegram.org"

type Bot struct {
	token      string
	chatID     string
	simulation bool

	orders *trading.OrderGateway
	gw     gateway.Gateway
	client *http.Client
	logger *zap.Logger

	baseURL      string
	lastUpdateID int64
}

func New(token, chatID string, simulation bool, orders *trading.OrderGateway, gw gateway.Gateway, logger *zap.Logger) (*Bot, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram bot requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}
	return &Bot{
		token:      token,
		chatID:     chatID,
		simulation: simulation,
		orders:     orders,
		gw:         gw,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		baseURL:    telegramAPI,
	}, nil
}

func (b *Bot) envName() string {
	if b.simulation {
		return "SIMULATED"
	}
	return "REAL"
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Run polls getUpdates until ctx is done. Transient HTTP failures back off
// and retry; the loop never exits on its own.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("telegram bot started", zap.String("env", b.envName()))
	b.sendReply(fmt.Sprintf("🤖 Bot Started [%s]\nListening for commands.", b.envName()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.fetchUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("polling failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			b.lastUpdateID = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}

			chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
			if chatID != b.chatID {
				b.logger.Warn("unauthorized bot access attempt",
					zap.String("chat_id", chatID),
					zap.String("text", u.Message.Text),
				)
				continue
			}

			if reply := b.handleCommand(ctx, strings.TrimSpace(u.Message.Text)); reply != "" {
				b.sendReply(reply)
			}
		}
	}
}

func (b *Bot) fetchUpdates(ctx context.Context) ([]update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=10&offset=%d", b.baseURL, b.token, b.lastUpdateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getUpdates returned status %d", resp.StatusCode)
	}

	var body struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.OK {
		return nil, fmt.Errorf("getUpdates not ok")
	}
	return body.Result, nil
}

func (b *Bot) sendReply(text string) {
	payload := map[string]string{
		"chat_id":    b.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token)
	resp, err := b.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		b.logger.Warn("failed to send bot reply", zap.Error(err))
		return
	}
	resp.Body.Close()
}

// handleCommand parses one command line and returns the reply text.
func (b *Bot) handleCommand(ctx context.Context, text string) string {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return ""
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	b.logger.Info("bot command received", zap.String("command", cmd))

	switch cmd {
	case "/start", "/help":
		return b.cmdHelp()
	case "/list":
		return b.cmdList(ctx)
	case "/order":
		return b.cmdOrder(ctx, args)
	case "/update":
		return b.cmdUpdate(ctx, args)
	case "/cancel":
		return b.cmdCancel(ctx, args)
	case "/cancelall":
		return b.cmdCancelAll(ctx)
	case "/info":
		return b.cmdInfo(args)
	default:
		return fmt.Sprintf("❌ Unknown command: `%s`. Type /help for options.", cmd)
	}
}

func (b *Bot) cmdHelp() string {
	return fmt.Sprintf("🤖 *FuturesTrade Bot (%s)*\n\n"+
		"*/list* - List active orders\n"+
		"*/order <code> <buy/sell> <price> <qty>* - Place limit order (e.g. `/order TMFR1 buy 33800 1`)\n"+
		"*/update <id> <price>* - Update order price\n"+
		"*/cancel <id>* - Cancel specific order\n"+
		"*/cancelall* - Cancel all active orders\n"+
		"*/info <code>* - Look up contract", b.envName())
}

func (b *Bot) cmdList(ctx context.Context) string {
	active, err := b.orders.ListActive(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error listing orders:\n`%v`", err)
	}
	if len(active) == 0 {
		return "📝 No active orders found."
	}

	lines := []string{fmt.Sprintf("📊 *Active Orders (%s)*", b.envName())}
	for _, o := range active {
		lines = append(lines, fmt.Sprintf("⏳ `%s` | %s | %s %d @ %s | %s",
			o.ID, o.Code, o.Action, o.Quantity, o.CurrentPrice(), o.Status))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) cmdOrder(ctx context.Context, args []string) string {
	if len(args) < 4 {
		return "❌ Usage: `/order <code> <buy/sell> <price> <qty>`\nExample: `/order TMFR1 buy 33800 1`"
	}

	code := strings.ToUpper(args[0])
	var action model.OrderAction
	switch strings.ToLower(args[1]) {
	case "buy":
		action = model.ActionBuy
	case "sell":
		action = model.ActionSell
	default:
		return "❌ Action must be buy or sell."
	}

	price, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Sprintf("❌ Invalid price `%s`.", args[2])
	}
	qty, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil || qty <= 0 {
		return fmt.Sprintf("❌ Invalid quantity `%s`.", args[3])
	}

	market, err := b.resolveMarket(code)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	ord, err := b.orders.Place(ctx, model.OrderRequest{
		Code:      code,
		Market:    market,
		Action:    action,
		Price:     price,
		Quantity:  qty,
		PriceType: model.PriceTypeLimit,
		OrderType: model.OrderTypeROD,
	})
	if err != nil {
		return fmt.Sprintf("❌ Error placing order:\n`%v`", err)
	}
	return fmt.Sprintf("✅ Order Placed Successfully!\nID: `%s`\nStatus: %s", ord.ID, ord.Status)
}

// resolveMarket tries the derivative catalog first, then equities.
func (b *Bot) resolveMarket(code string) (model.MarketClass, error) {
	for _, market := range []model.MarketClass{model.MarketDerivative, model.MarketEquity} {
		c, err := b.gw.LookupContract(code, market)
		if err != nil {
			return "", err
		}
		if c != nil {
			return market, nil
		}
	}
	return "", fmt.Errorf("no contract found for `%s`", code)
}

func (b *Bot) cmdUpdate(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "❌ Usage: `/update <id> <new_price>`\nExample: `/update ee3aefe6 33900`"
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Sprintf("❌ Invalid price `%s`.", args[1])
	}

	if err := b.orders.UpdatePrice(ctx, args[0], price); err != nil {
		return fmt.Sprintf("❌ Failed to update:\n`%v`", err)
	}
	return fmt.Sprintf("✏️ Update request sent: Order `%s` to price `%s`.", args[0], price)
}

func (b *Bot) cmdCancel(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "❌ Please provide an Order ID: `/cancel <id>`"
	}
	if err := b.orders.Cancel(ctx, args[0]); err != nil {
		return fmt.Sprintf("❌ Error cancelling order:\n`%v`", err)
	}
	return fmt.Sprintf("🗑️ Cancellation request sent for Order `%s`.", args[0])
}

func (b *Bot) cmdCancelAll(ctx context.Context) string {
	count, err := b.orders.CancelAll(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error cancelling orders:\n`%v`", err)
	}
	return fmt.Sprintf("🗑️ Sent cancellation requests for %d order(s).", count)
}

func (b *Bot) cmdInfo(args []string) string {
	if len(args) == 0 {
		return "❌ Usage: `/info <code>`"
	}
	code := strings.ToUpper(args[0])

	lines := []string{}
	for _, market := range []model.MarketClass{model.MarketDerivative, model.MarketEquity} {
		c, err := b.gw.LookupContract(code, market)
		if err != nil || c == nil {
			continue
		}
		label := "🏢 *Stock*"
		if market == model.MarketDerivative {
			label = "📈 *Future*"
		}
		lines = append(lines, fmt.Sprintf("%s\n`%s` - %s (ref %s)", label, c.Code, c.Name, c.Reference))
	}
	if len(lines) == 0 {
		return fmt.Sprintf("❌ No results found for '%s'.", code)
	}
	return strings.Join(lines, "\n")
}
