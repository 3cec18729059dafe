// Package metrics exposes Prometheus counters and gauges for the trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SnapshotsTotal counts successful price snapshot fetches per market.
	SnapshotsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendbot_snapshots_total",
		Help: "Price snapshots fetched, by market.",
	}, []string{"market"})

	// FetchErrorsTotal counts failed snapshot fetches per market.
	FetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendbot_fetch_errors_total",
		Help: "Snapshot fetch failures, by market.",
	}, []string{"market"})

	// DecisionsTotal counts strategy decisions by market and action kind.
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendbot_decisions_total",
		Help: "Strategy decisions, by market and action.",
	}, []string{"market", "action"})

	// OrdersTotal counts executed entries and exits by market and side.
	OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendbot_orders_total",
		Help: "Executed orders, by market and side.",
	}, []string{"market", "side"})

	// SubmitFailuresTotal counts live order submissions that exhausted retries.
	SubmitFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendbot_submit_failures_total",
		Help: "Live order submissions that failed after retries, by market.",
	}, []string{"market"})

	// RealizedPnL is the account's cumulative realized profit and loss.
	RealizedPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trendbot_realized_pnl",
		Help: "Cumulative realized PnL of the simulated account.",
	})

	// Equity is the account's marked equity.
	Equity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trendbot_equity",
		Help: "Marked equity of the simulated account.",
	})
)

func init() {
	prometheus.MustRegister(
		SnapshotsTotal,
		FetchErrorsTotal,
		DecisionsTotal,
		OrdersTotal,
		SubmitFailuresTotal,
		RealizedPnL,
		Equity,
	)
}

// Serve starts an HTTP server exposing /metrics on addr. The caller owns
// shutdown of the returned server.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
