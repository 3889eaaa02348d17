package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticks_ingested_total",
		Help: "Total number of live ticks recorded into the buffer",
	}, []string{"market", "code"})

	TicksRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticks_recovered_total",
		Help: "Total number of historical ticks merged by gap recovery",
	}, []string{"market", "code"})

	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "active_subscriptions",
		Help: "Number of instrument codes currently subscribed",
	}, []string{"market"})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders submitted to the brokerage",
	}, []string{"action"})

	StopTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stop_triggers_total",
		Help: "Total number of stop-loss triggers fired",
	})

	FillAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fill_anomalies_total",
		Help: "Fills observed for orders believed cancelled or terminal",
	})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_clients_total",
		Help: "Total number of connected push clients",
	})
)
