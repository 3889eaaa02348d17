// Package notify delivers best-effort operator notifications. Failures are
// logged, never propagated: a lost notification must not affect strategy
// state.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const telegramAPI = "https://api.telegram.org"

// Notifier writes every notification to the log and, when Telegram
// credentials are configured, pushes it to the allow-listed chat. A token
// bucket caps the send rate so a burst of trigger notifications cannot
// flood the API.
type Notifier struct {
	token   string
	chatID  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	baseURL string
}

func NewNotifier(token, chatID string, logger *zap.Logger) *Notifier {
	return &Notifier{
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  logger,
		baseURL: telegramAPI,
	}
}

func (n *Notifier) Notify(title, message string) {
	n.logger.Info("notify", zap.String("title", title), zap.String("message", message))

	if n.token == "" || n.chatID == "" {
		return
	}
	if !n.limiter.Allow() {
		n.logger.Warn("notification rate limited, dropped", zap.String("title", title))
		return
	}

	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       fmt.Sprintf("🔔 *%s*\n\n%s", title, message),
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Error("failed to send telegram notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Error("telegram rejected notification", zap.Int("status", resp.StatusCode))
	}
}
