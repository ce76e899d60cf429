// Package metrics wraps the prometheus collectors for dispatch throughput,
// book depth, and trade activity, implementing dispatch.Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kestrelmd/matchbook/internal/manager"
)

// Registry bundles the engine's prometheus collectors. Construct one per
// process and pass its *prometheus.Registry to an HTTP handler (e.g.
// promhttp.HandlerFor) in cmd/engine.
type Registry struct {
	reg *prometheus.Registry

	commandsTotal    *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
	tradesTotal      *prometheus.CounterVec
	tradeNotional    *prometheus.CounterVec
	activeOrderGauge *prometheus.GaugeVec
	bestBidGauge     *prometheus.GaugeVec
	bestAskGauge     *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchbook",
		Name:      "commands_total",
		Help:      "Commands processed by kind and outcome.",
	}, []string{"kind", "outcome"})

	r.dispatchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matchbook",
		Name:      "dispatch_latency_seconds",
		Help:      "Time spent processing a single command.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	r.tradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchbook",
		Name:      "trades_total",
		Help:      "Number of transactions produced by matching, per instrument.",
	}, []string{"instrument"})

	r.tradeNotional = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchbook",
		Name:      "trade_notional_total",
		Help:      "Sum of price * quantity across transactions, per instrument.",
	}, []string{"instrument"})

	r.activeOrderGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matchbook",
		Name:      "active_orders",
		Help:      "Live order count, per instrument.",
	}, []string{"instrument"})

	r.bestBidGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matchbook",
		Name:      "best_bid",
		Help:      "Best resting bid price, per instrument.",
	}, []string{"instrument"})

	r.bestAskGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matchbook",
		Name:      "best_ask",
		Help:      "Best resting ask price, per instrument.",
	}, []string{"instrument"})

	r.reg.MustRegister(
		r.commandsTotal, r.dispatchLatency, r.tradesTotal,
		r.tradeNotional, r.activeOrderGauge, r.bestBidGauge, r.bestAskGauge,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP metrics endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveCommand implements dispatch.Metrics.
func (r *Registry) ObserveCommand(kind, outcome string, duration time.Duration) {
	r.commandsTotal.WithLabelValues(kind, outcome).Inc()
	r.dispatchLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveTrade implements dispatch.Metrics.
func (r *Registry) ObserveTrade(instrumentID string, quantity, price uint64) {
	r.tradesTotal.WithLabelValues(instrumentID).Inc()
	r.tradeNotional.WithLabelValues(instrumentID).Add(float64(quantity) * float64(price))
}

// SampleBookDepth updates the per-instrument gauges from the current state
// of every book in m; intended to be called on a ticker by the bootstrap
// process rather than per-command, since these are point-in-time samples.
func (r *Registry) SampleBookDepth(m *manager.BookManager) {
	for _, instrumentID := range m.ListInstruments() {
		b, ok := m.GetBook(instrumentID)
		if !ok {
			continue
		}
		r.activeOrderGauge.WithLabelValues(instrumentID).Set(float64(b.OrderCount()))
		if bid, ok := b.BestBid(); ok {
			r.bestBidGauge.WithLabelValues(instrumentID).Set(float64(bid))
		}
		if ask, ok := b.BestAsk(); ok {
			r.bestAskGauge.WithLabelValues(instrumentID).Set(float64(ask))
		}
	}
}
