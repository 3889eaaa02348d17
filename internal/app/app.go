package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MinJyun/FuturesTrade/api"
	"github.com/MinJyun/FuturesTrade/internal/config"
	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/infrastructure"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/notify"
	"github.com/MinJyun/FuturesTrade/internal/push"
	"github.com/MinJyun/FuturesTrade/internal/quote"
	"github.com/MinJyun/FuturesTrade/internal/record"
	"github.com/MinJyun/FuturesTrade/internal/trading"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App defines the application structure and its dependencies
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Simulation bool

	Gateway  gateway.Gateway
	Buffer   *quote.TickBuffer
	Quotes   *quote.Registry
	Orders   *trading.OrderGateway
	Notifier *notify.Notifier
	Recorder *record.Sink

	NC          *nats.Conn
	JS          nats.JetStreamContext
	PushGateway *push.Gateway
	HTTPServer  *http.Server
}

// NewApp creates a new application instance
func NewApp(simulation bool) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config:     &cfg,
		Logger:     logger,
		Simulation: simulation,
	}, nil
}

// Init opens the brokerage session and wires the quote and order pipeline.
func (a *App) Init(ctx context.Context) error {
	// 1. Brokerage gateway
	if a.Simulation {
		a.Gateway = gateway.NewSimGateway(a.Logger)
		a.Logger.Info("running in simulation mode")
	} else {
		if err := a.Config.Validate(a.Simulation); err != nil {
			return err
		}
		a.Gateway = gateway.NewBridgeGateway(a.Config.BridgeURL, a.Config.APIKey, a.Config.SecretKey, a.Logger)
	}
	if err := a.Gateway.Login(ctx); err != nil {
		return fmt.Errorf("failed to open brokerage session: %w", err)
	}

	// 2. Quote pipeline
	a.Buffer = quote.NewTickBuffer()
	recovery := quote.NewGapRecovery(a.Gateway, a.Logger)
	a.Quotes = quote.NewRegistry(a.Gateway, a.Buffer, recovery, a.Logger)
	a.Gateway.OnTick(func(market model.MarketClass, tick model.Tick) {
		a.Buffer.Record(tick)
	})

	// 3. Orders and side channels
	a.Orders = trading.NewOrderGateway(a.Gateway, a.Logger)
	a.Notifier = notify.NewNotifier(a.Config.TelegramBotToken, a.Config.TelegramChatID, a.Logger)
	a.Recorder = record.NewSink(a.Config.SheetWebhookURL, a.Config.SheetTab, a.Logger)

	// 4. NATS relay, optional
	if a.Config.NatsURL != "" {
		nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.NC = nc
		a.JS = js
	}

	a.PushGateway = push.NewGateway(a.Logger)
	return nil
}

// Run starts the relay, the bridge stream, and the HTTP server, then blocks
// until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if bridge, ok := a.Gateway.(*gateway.BridgeGateway); ok {
		go bridge.RunStream(ctx)
	}
	if sim, ok := a.Gateway.(*gateway.SimGateway); ok {
		sim.StartFeed(ctx, time.Second)
	}

	a.startRelay(ctx)

	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown(cancel)
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown(cancel context.CancelFunc) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")
	cancel()

	ctx, timeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeout()

	if err := a.Quotes.UnsubscribeAll(ctx, model.MarketEquity); err != nil {
		a.Logger.Warn("failed to drain equity subscriptions", zap.Error(err))
	}
	if err := a.Quotes.UnsubscribeAll(ctx, model.MarketDerivative); err != nil {
		a.Logger.Warn("failed to drain derivative subscriptions", zap.Error(err))
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.NC != nil {
		a.NC.Close()
	}
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.Gateway, a.Buffer, a.Quotes, a.Orders, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ticks/:market/:code", apiHandler.GetTicks)
		v1.GET("/kbars/:market/:code", apiHandler.GetKBars)
		v1.GET("/subscriptions", apiHandler.GetSubscriptions)
		v1.GET("/orders", apiHandler.ListOrders)
		v1.GET("/positions", apiHandler.ListPositions)
		v1.POST("/replay", apiHandler.RunReplay)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.PushGateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
