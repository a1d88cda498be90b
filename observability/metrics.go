package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// MarketMetrics bundles collectors tracking marketplace engine activity.
type MarketMetrics struct {
	transitions *prometheus.CounterVec
	payouts     *prometheus.CounterVec
	payoutValue *prometheus.CounterVec
	openings    *prometheus.GaugeVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics

	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics
)

// RPCMetrics returns the lazily-initialised metrics registry used to record
// JSON-RPC handler activity.
func RPCMetrics() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and status code.",
			}, []string{"method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketd",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of an RPC request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *rpcMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// Market returns the singleton metrics registry for marketplace transitions.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "market",
				Name:      "transitions_total",
				Help:      "Count of listing state transitions segmented by kind, action, and outcome.",
			}, []string{"kind", "action", "outcome"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "market",
				Name:      "payouts_total",
				Help:      "Count of settled payouts segmented by settlement currency.",
			}, []string{"symbol"}),
			payoutValue: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "market",
				Name:      "payout_value_total",
				Help:      "Cumulative gross payout value in integer base units per currency.",
			}, []string{"symbol"}),
			openings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "marketd",
				Subsystem: "market",
				Name:      "open_listings",
				Help:      "Number of open listings per kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			marketRegistry.transitions,
			marketRegistry.payouts,
			marketRegistry.payoutValue,
			marketRegistry.openings,
		)
	})
	return marketRegistry
}

// RecordTransition increments the transition counter for the supplied listing
// kind and action. Actions should be stable strings such as "announce" or
// "purchase" so dashboards and alerts remain consistent.
func (m *MarketMetrics) RecordTransition(kind, action string, err error) {
	if m == nil {
		return
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "unknown"
	}
	if action = strings.TrimSpace(action); action == "" {
		action = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.transitions.WithLabelValues(kind, action, outcome).Inc()
}

// RecordPayout records a settled payout and its gross value.
func (m *MarketMetrics) RecordPayout(symbol string, gross *big.Int) {
	if m == nil {
		return
	}
	label := labelSymbol(symbol)
	m.payouts.WithLabelValues(label).Inc()
	m.payoutValue.WithLabelValues(label).Add(bigToFloat(gross))
}

// SetOpenListings updates the open listing gauge for a kind.
func (m *MarketMetrics) SetOpenListings(kind string, count int) {
	if m == nil {
		return
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "unknown"
	}
	m.openings.WithLabelValues(kind).Set(float64(count))
}

func labelSymbol(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
