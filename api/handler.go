package api

import (
	"net/http"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/engine"
	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/quote"
	"github.com/MinJyun/FuturesTrade/internal/strategy"
	"github.com/MinJyun/FuturesTrade/internal/trading"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	gw     gateway.Gateway
	buffer *quote.TickBuffer
	quotes *quote.Registry
	orders *trading.OrderGateway
	logger *zap.Logger
}

func NewHandler(gw gateway.Gateway, buffer *quote.TickBuffer, quotes *quote.Registry, orders *trading.OrderGateway, logger *zap.Logger) *Handler {
	return &Handler{
		gw:     gw,
		buffer: buffer,
		quotes: quotes,
		orders: orders,
		logger: logger,
	}
}

func parseMarket(s string) (model.MarketClass, bool) {
	switch model.MarketClass(s) {
	case model.MarketEquity:
		return model.MarketEquity, true
	case model.MarketDerivative:
		return model.MarketDerivative, true
	default:
		return "", false
	}
}

// Quote Handlers

func (h *Handler) GetTicks(c *gin.Context) {
	market, ok := parseMarket(c.Param("market"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market must be stk or fop"})
		return
	}
	code := c.Param("code")

	ticks := h.buffer.Snapshot(market, code)
	if limit := 1000; len(ticks) > limit {
		ticks = ticks[len(ticks)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       code,
		"market":     market,
		"count":      len(ticks),
		"subscribed": h.quotes.IsSubscribed(code, market),
		"ticks":      ticks,
	})
}

func (h *Handler) GetKBars(c *gin.Context) {
	market, ok := parseMarket(c.Param("market"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market must be stk or fop"})
		return
	}
	code := c.Param("code")

	unit, err := time.ParseDuration(c.DefaultQuery("unit", "1m"))
	if err != nil || unit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit, use durations like 1m or 5m"})
		return
	}

	c.JSON(http.StatusOK, h.buffer.Aggregate(market, code, unit))
}

func (h *Handler) GetSubscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stk": h.quotes.Active(model.MarketEquity),
		"fop": h.quotes.Active(model.MarketDerivative),
	})
}

// Order Handlers

func (h *Handler) ListOrders(c *gin.Context) {
	var (
		orders []model.Order
		err    error
	)
	if c.Query("active") == "true" {
		orders, err = h.orders.ListActive(c.Request.Context())
	} else {
		orders, err = h.orders.List(c.Request.Context())
	}
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "brokerage unavailable"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) ListPositions(c *gin.Context) {
	market, ok := parseMarket(c.DefaultQuery("market", string(model.MarketDerivative)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market must be stk or fop"})
		return
	}

	positions, err := h.gw.ListPositions(c.Request.Context(), market)
	if err != nil {
		h.logger.Error("failed to list positions", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "brokerage unavailable"})
		return
	}
	c.JSON(http.StatusOK, positions)
}

// Replay Handlers

func (h *Handler) RunReplay(c *gin.Context) {
	var req struct {
		Code           string                 `json:"code" binding:"required"`
		Market         string                 `json:"market" binding:"required"`
		Unit           string                 `json:"unit"`
		StrategyType   string                 `json:"strategy_type" binding:"required"`
		Config         map[string]interface{} `json:"config"`
		InitialBalance decimal.Decimal        `json:"initial_balance"`
		Lots           int64                  `json:"lots"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, ok := parseMarket(req.Market)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market must be stk or fop"})
		return
	}

	if req.Unit == "" {
		req.Unit = "1m"
	}
	unit, err := time.ParseDuration(req.Unit)
	if err != nil || unit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit, use durations like 1m or 5m"})
		return
	}

	bars := h.buffer.Aggregate(market, req.Code, unit)
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recorded ticks for " + req.Code})
		return
	}

	strat, err := strategy.NewBarStrategy(req.StrategyType, req.Config)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.InitialBalance.IsZero() {
		req.InitialBalance = decimal.NewFromInt(1000000)
	}
	report := engine.NewReplayer(strat, req.InitialBalance, req.Lots).Run(bars)
	c.JSON(http.StatusOK, report)
}
