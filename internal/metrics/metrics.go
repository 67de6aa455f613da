package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradingCycles counts completed bot trading cycles.
	TradingCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_cycles_total",
		Help: "Number of completed bot trading cycles.",
	})

	// OrdersExecuted counts executed bot orders by action.
	OrdersExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trading_orders_total",
		Help: "Number of executed bot orders.",
	}, []string{"action"})

	// PriceLookupFailures counts price fetches skipped during cycles.
	PriceLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_price_lookup_failures_total",
		Help: "Number of failed price lookups during trading cycles.",
	})

	// ActiveBots tracks the number of ACTIVE bots seen by the last
	// scheduler sweep.
	ActiveBots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trading_active_bots",
		Help: "Number of active trading bots at the last scheduler run.",
	})
)
