package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/app"
	"github.com/MinJyun/FuturesTrade/internal/bot"
	"github.com/MinJyun/FuturesTrade/internal/gateway"
	"github.com/MinJyun/FuturesTrade/internal/model"
	"github.com/MinJyun/FuturesTrade/internal/strategy"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const version = "0.2.0"

var simulation bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "futures-trade",
		Short: "Strategy execution layer over a brokerage gateway",
		Long:  "Tick ingestion, gap recovery, order management, and stop-loss automation for futures and equities.",
	}

	rootCmd.PersistentFlags().BoolVar(&simulation, "sim", false, "run against the simulated brokerage")

	rootCmd.AddCommand(
		newServeCmd(),
		newQuoteCmd(),
		newOrderCmd(),
		newCancelCmd(),
		newUpdateCmd(),
		newListCmd(),
		newPositionsCmd(),
		newMonitorCmd(),
		newTradeCmd(),
		newBotCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSession builds and initializes the application for one command.
func newSession(ctx context.Context) (*app.App, error) {
	a, err := app.NewApp(simulation)
	if err != nil {
		return nil, err
	}
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func parseMarketFlag(s string) (model.MarketClass, error) {
	switch model.MarketClass(s) {
	case model.MarketEquity:
		return model.MarketEquity, nil
	case model.MarketDerivative:
		return model.MarketDerivative, nil
	default:
		return "", fmt.Errorf("market must be stk or fop, got %q", s)
	}
}

func waitForInterrupt(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
}

// runUntilInterrupt drives a strategy to completion, treating Ctrl+C as a
// request to stop rather than an error.
func runUntilInterrupt(ctx context.Context, r strategy.Runner) error {
	go func() {
		waitForInterrupt(ctx)
		r.Stop()
	}()
	if err := r.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("futures-trade " + version)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub, and tick relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}

func newQuoteCmd() *cobra.Command {
	var market string
	var recover bool

	cmd := &cobra.Command{
		Use:   "quote <code>...",
		Short: "Subscribe to live ticks and print them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newSession(ctx)
			if err != nil {
				return err
			}
			mkt, err := parseMarketFlag(market)
			if err != nil {
				return err
			}

			a.Gateway.OnTick(func(m model.MarketClass, tick model.Tick) {
				fmt.Printf("%s  %s %s  price=%s volume=%d\n",
					tick.Timestamp.Format("15:04:05.000000"), m, tick.Code, tick.Price, tick.Volume)
			})

			if err := a.Quotes.Subscribe(ctx, args, mkt, recover); err != nil {
				return err
			}
			if sim, ok := a.Gateway.(*gateway.SimGateway); ok {
				sim.StartFeed(ctx, time.Second)
			}

			fmt.Println("streaming ticks, Ctrl+C to stop")
			waitForInterrupt(ctx)
			return a.Quotes.UnsubscribeAll(context.Background(), mkt)
		},
	}

	cmd.Flags().StringVar(&market, "market", string(model.MarketDerivative), "market class (stk or fop)")
	cmd.Flags().BoolVar(&recover, "recover", true, "backfill session history before live ticks")
	return cmd
}

func newOrderCmd() *cobra.Command {
	var market string
	var marketPrice bool

	cmd := &cobra.Command{
		Use:   "order <code> <buy|sell> <price> <qty>",
		Short: "Place an order",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			mkt, err := parseMarketFlag(market)
			if err != nil {
				return err
			}

			var action model.OrderAction
			switch args[1] {
			case "buy":
				action = model.ActionBuy
			case "sell":
				action = model.ActionSell
			default:
				return fmt.Errorf("action must be buy or sell, got %q", args[1])
			}

			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid price %q", args[2])
			}
			qty, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil || qty <= 0 {
				return fmt.Errorf("invalid quantity %q", args[3])
			}

			priceType := model.PriceTypeLimit
			if marketPrice {
				priceType = model.PriceTypeMarket
			}

			ord, err := a.Orders.Place(cmd.Context(), model.OrderRequest{
				Code:      args[0],
				Market:    mkt,
				Action:    action,
				Price:     price,
				Quantity:  qty,
				PriceType: priceType,
				OrderType: model.OrderTypeROD,
			})
			if err != nil {
				return err
			}
			fmt.Printf("order placed: id=%s status=%s\n", ord.ID, ord.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&market, "market", string(model.MarketDerivative), "market class (stk or fop)")
	cmd.Flags().BoolVar(&marketPrice, "mkt", false, "submit at market price instead of limit")
	return cmd
}

func newCancelCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cancel [order-id]",
		Short: "Cancel an order, or all active orders with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSession(cmd.Context())
			if err != nil {
				return err
			}

			if all {
				count, err := a.Orders.CancelAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("sent cancellation requests for %d order(s)\n", count)
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("provide an order id or --all")
			}
			if err := a.Orders.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("cancellation requested for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "cancel every active order")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <order-id> <price>",
		Short: "Update the price of an active order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid price %q", args[1])
			}
			if err := a.Orders.UpdatePrice(cmd.Context(), args[0], price); err != nil {
				return err
			}
			fmt.Printf("order %s updated to %s\n", args[0], price)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSession(cmd.Context())
			if err != nil {
				return err
			}

			var orders []model.Order
			if all {
				orders, err = a.Orders.List(cmd.Context())
			} else {
				orders, err = a.Orders.ListActive(cmd.Context())
			}
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Println("no orders found")
				return nil
			}
			for _, o := range orders {
				fmt.Printf("%s  %s %s %d @ %s  [%s]\n",
					o.ID, o.Code, o.Action, o.Quantity, o.CurrentPrice(), o.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include filled and cancelled orders")
	return cmd
}

func newPositionsCmd() *cobra.Command {
	var market string

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			mkt, err := parseMarketFlag(market)
			if err != nil {
				return err
			}

			positions, err := a.Gateway.ListPositions(cmd.Context(), mkt)
			if err != nil {
				return err
			}
			if len(positions) == 0 {
				fmt.Println("no open positions")
				return nil
			}
			for _, p := range positions {
				fmt.Printf("%s  %s %d @ %s\n", p.Code, p.Direction(), p.AbsQuantity(), p.Price)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&market, "market", string(model.MarketDerivative), "market class (stk or fop)")
	return cmd
}

func newMonitorCmd() *cobra.Command {
	var market, direction, stop, takeProfit string
	var qty int64

	cmd := &cobra.Command{
		Use:   "monitor <code>",
		Short: "Guard an open position with a stop-loss and take-profit pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newSession(ctx)
			if err != nil {
				return err
			}
			mkt, err := parseMarketFlag(market)
			if err != nil {
				return err
			}

			var dir model.Direction
			switch direction {
			case "long":
				dir = model.DirectionLong
			case "short":
				dir = model.DirectionShort
			default:
				return fmt.Errorf("direction must be long or short, got %q", direction)
			}

			stopPrice, err := decimal.NewFromString(stop)
			if err != nil {
				return fmt.Errorf("invalid stop price %q", stop)
			}
			tpPrice, err := decimal.NewFromString(takeProfit)
			if err != nil {
				return fmt.Errorf("invalid take-profit price %q", takeProfit)
			}

			if sim, ok := a.Gateway.(*gateway.SimGateway); ok {
				sim.StartFeed(ctx, time.Second)
			}

			oco := strategy.NewOcoStrategy(strategy.OcoConfig{
				Symbol:          args[0],
				Market:          mkt,
				Quantity:        qty,
				Direction:       dir,
				StopPrice:       stopPrice,
				TakeProfitPrice: tpPrice,
			}, a.Orders, a.Quotes, a.Gateway, a.Notifier, a.Recorder, a.Logger)

			if err := runUntilInterrupt(ctx, oco); err != nil {
				return err
			}
			fmt.Printf("monitor finished in state %s\n", oco.State())
			return nil
		},
	}

	cmd.Flags().StringVar(&market, "market", string(model.MarketDerivative), "market class (stk or fop)")
	cmd.Flags().StringVar(&direction, "direction", "long", "position direction (long or short)")
	cmd.Flags().Int64Var(&qty, "qty", 1, "quantity to guard")
	cmd.Flags().StringVar(&stop, "stop", "", "stop-loss trigger price")
	cmd.Flags().StringVar(&takeProfit, "tp", "", "take-profit limit price")
	cmd.MarkFlagRequired("stop")
	cmd.MarkFlagRequired("tp")
	return cmd
}

func newTradeCmd() *cobra.Command {
	var market string
	var qty int64

	cmd := &cobra.Command{
		Use:   "trade <code>",
		Short: "Run the moving-average entry strategy on live ticks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newSession(ctx)
			if err != nil {
				return err
			}
			mkt, err := parseMarketFlag(market)
			if err != nil {
				return err
			}

			if sim, ok := a.Gateway.(*gateway.SimGateway); ok {
				sim.StartFeed(ctx, time.Second)
			}

			s := strategy.NewTickEntryStrategy(a.Quotes, a.Buffer, a.Orders, args[0], mkt, qty, a.Logger)
			return runUntilInterrupt(ctx, s)
		},
	}

	cmd.Flags().StringVar(&market, "market", string(model.MarketDerivative), "market class (stk or fop)")
	cmd.Flags().Int64Var(&qty, "qty", 1, "order quantity")
	return cmd
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram command listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newSession(ctx)
			if err != nil {
				return err
			}

			b, err := bot.New(a.Config.TelegramBotToken, a.Config.TelegramChatID, simulation, a.Orders, a.Gateway, a.Logger)
			if err != nil {
				return err
			}

			go func() {
				waitForInterrupt(ctx)
				cancel()
			}()

			err = b.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
}
