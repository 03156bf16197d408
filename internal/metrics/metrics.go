// Package metrics exposes the process's Prometheus metrics: a counter
// vector for gRPC requests by method and status code, and a collector
// that samples active session count at scrape time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GRPCRequestsTotal counts every unary and streaming RPC handled, labeled
// by method name and the resulting gRPC status code.
var GRPCRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sentiric_media_grpc_requests_total",
		Help: "Total gRPC requests handled, labeled by method and status code.",
	},
	[]string{"method", "code"},
)

// ActiveSessionsProvider exposes the current count of live RTP sessions.
type ActiveSessionsProvider interface {
	ActiveSessions() int
}

// Collector samples engine-wide gauges at scrape time rather than
// maintaining them incrementally, avoiding drift between the engine's
// session map and a separately-tracked counter.
type Collector struct {
	engine ActiveSessionsProvider

	activeSessionsDesc *prometheus.Desc
}

// NewCollector builds a Collector sampling e at scrape time.
func NewCollector(e ActiveSessionsProvider) *Collector {
	return &Collector{
		engine: e,
		activeSessionsDesc: prometheus.NewDesc(
			"sentiric_media_active_sessions",
			"Number of RTP media sessions currently bound to a port.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeSessionsDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.activeSessionsDesc, prometheus.GaugeValue, float64(c.engine.ActiveSessions()))
}

// Register registers GRPCRequestsTotal and a Collector for e against reg.
func Register(reg *prometheus.Registry, e ActiveSessionsProvider) error {
	if err := reg.Register(GRPCRequestsTotal); err != nil {
		return err
	}
	return reg.Register(NewCollector(e))
}
