package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes sync and budget figures to prometheus. It implements
// cloudsync.Observer.
type Metrics struct {
	reg *prometheus.Registry

	syncOps   *prometheus.CounterVec
	reloads   prometheus.Counter
	budget    *prometheus.GaugeVec
	spent     *prometheus.GaugeVec
	remaining *prometheus.GaugeVec
	alerts    prometheus.Gauge
	sseSubs   prometheus.Gauge
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		syncOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripburn",
			Subsystem: "sync",
			Name:      "operations_total",
			Help:      "Remote sync operations by kind and result.",
		}, []string{"op", "result"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripburn",
			Name:      "reloads_total",
			Help:      "State reloads triggered by changes from other processes.",
		}),
		budget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tripburn",
			Name:      "budget",
			Help:      "Planned budget per destination in home currency.",
		}, []string{"destination"}),
		spent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tripburn",
			Name:      "spent",
			Help:      "Total spend per destination in home currency.",
		}, []string{"destination"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tripburn",
			Name:      "remaining",
			Help:      "Budget left per destination, negative when over.",
		}, []string{"destination"}),
		alerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripburn",
			Name:      "alerts_active",
			Help:      "Alerts in the rotating set for the active destination.",
		}),
		sseSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripburn",
			Name:      "stream_subscribers",
			Help:      "Connected /v1/stream clients.",
		}),
	}
	m.reg.MustRegister(m.syncOps, m.reloads, m.budget, m.spent, m.remaining, m.alerts, m.sseSubs,
		collectors.NewGoCollector())
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) PushDone(_ string, err error) { m.syncOps.WithLabelValues("push", result(err)).Inc() }
func (m *Metrics) PullDone(err error)           { m.syncOps.WithLabelValues("pull", result(err)).Inc() }
func (m *Metrics) ShareDone(err error)          { m.syncOps.WithLabelValues("share", result(err)).Inc() }

func (m *Metrics) observeDestination(slug string, snap Snapshot) {
	m.budget.WithLabelValues(slug).Set(snap.Budget)
	m.spent.WithLabelValues(slug).Set(snap.Spent)
	m.remaining.WithLabelValues(slug).Set(snap.RawRemaining)
}

func (m *Metrics) forgetDestination(slug string) {
	m.budget.DeleteLabelValues(slug)
	m.spent.DeleteLabelValues(slug)
	m.remaining.DeleteLabelValues(slug)
}
