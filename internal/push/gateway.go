// Package push fans live events out to websocket clients. Clients subscribe
// to topics over the socket; the process publishes into the gateway and slow
// consumers are dropped rather than allowed to stall the feed.
package push

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/MinJyun/FuturesTrade/internal/infrastructure"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Gateway is the in-process hub between tick producers and websocket
// consumers. Topics follow the relay's subject layout, e.g.
// "ticks.raw.fop.TXFR1" or "ticks.kbar.1m.TXFR1"; a subscription segment of
// "*" matches any value.
type Gateway struct {
	logger        *zap.Logger
	mu            sync.RWMutex
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool
}

func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:        logger,
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Publish delivers a payload to every client whose subscription matches the
// topic. Full send buffers drop the message for that client.
func (g *Gateway) Publish(topic string, data []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for pattern, clients := range g.subscriptions {
		if !matchTopic(pattern, topic) {
			continue
		}
		for c := range clients {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// matchTopic compares dot-separated subjects segment by segment, treating
// "*" in the pattern as a single-segment wildcard.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	ps := strings.Split(pattern, ".")
	ts := strings.Split(topic, ".")
	if len(ps) != len(ts) {
		return false
	}
	for i := range ps {
		if ps[i] != "*" && ps[i] != ts[i] {
			return false
		}
	}
	return true
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[client] = true
	g.mu.Unlock()
	infrastructure.WSClients.Inc()

	go g.writePump(client)
	g.readPump(client)
}

func (g *Gateway) readPump(c *Client) {
	defer func() {
		g.mu.Lock()
		delete(g.clients, c)
		for topic, clients := range g.subscriptions {
			delete(clients, c)
			if len(clients) == 0 {
				delete(g.subscriptions, topic)
			}
		}
		g.mu.Unlock()
		infrastructure.WSClients.Dec()
		close(c.send)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Action string `json:"action"` // "subscribe", "unsubscribe"
			Topic  string `json:"topic"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		g.mu.Lock()
		switch req.Action {
		case "subscribe":
			if g.subscriptions[req.Topic] == nil {
				g.subscriptions[req.Topic] = make(map[*Client]bool)
			}
			g.subscriptions[req.Topic][c] = true
			g.logger.Info("client subscribed to topic", zap.String("topic", req.Topic))
		case "unsubscribe":
			if clients, ok := g.subscriptions[req.Topic]; ok {
				delete(clients, c)
				if len(clients) == 0 {
					delete(g.subscriptions, req.Topic)
				}
			}
		}
		g.mu.Unlock()
	}
}

func (g *Gateway) writePump(c *Client) {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
