package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on a per-service registry so several services can
// coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	budgets        *prometheus.GaugeVec
	spent          prometheus.Gauge
	remaining      prometheus.Gauge
	alertingLimits prometheus.Gauge
	pending        prometheus.Gauge
	events         *prometheus.CounterVec
	sweeps         *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	completed      prometheus.Counter
	subscribers    prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		budgets: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bopt",
				Subsystem: "ledger",
				Name:      "budgets",
				Help:      "Number of budgets by status",
			},
			[]string{"status"},
		),
		spent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "bopt",
			Subsystem: "ledger",
			Name:      "spent",
			Help:      "Total spend across open budgets",
		}),
		remaining: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "bopt",
			Subsystem: "ledger",
			Name:      "remaining",
			Help:      "Total remaining across open budgets",
		}),
		alertingLimits: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "bopt",
			Subsystem: "ledger",
			Name:      "alerting_limits",
			Help:      "Category limits near or over their allocation",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "bopt",
			Subsystem: "optimizer",
			Name:      "pending_suggestions",
			Help:      "Suggestions not yet applied",
		}),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bopt",
				Subsystem: "daemon",
				Name:      "events_total",
				Help:      "Events published by type",
			},
			[]string{"type"},
		),
		sweeps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bopt",
				Subsystem: "daemon",
				Name:      "sweeps_total",
				Help:      "Sweeps run by result",
			},
			[]string{"result"},
		),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bopt",
			Subsystem: "daemon",
			Name:      "sweep_duration_seconds",
			Help:      "Sweep duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bopt",
			Subsystem: "daemon",
			Name:      "budgets_completed_total",
			Help:      "Expired budgets completed by sweeps",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "bopt",
			Subsystem: "daemon",
			Name:      "stream_subscribers",
			Help:      "Open /v1/stream connections",
		}),
	}
}
