package live

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/patchbay/internal/engine"
)

// Metrics are the Prometheus collectors of a session.
//
// All methods are no-ops on a nil *Metrics.
type Metrics struct {
	// edits counts edit cycles by status (committed, rejected).
	edits *prometheus.CounterVec

	// rejections counts rejected cycles by error code.
	rejections *prometheus.CounterVec

	editDuration prometheus.Histogram

	// planOps counts applied plan operations by kind (add, remove, update,
	// delete).
	planOps *prometheus.CounterVec

	generation prometheus.Gauge
	nodes      prometheus.Gauge

	blocks        prometheus.Counter
	skippedBlocks prometheus.Counter

	// messages counts SendMessage calls by result (ok, error).
	messages *prometheus.CounterVec

	journalErrors prometheus.Counter
}

// NewMetrics creates the session collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		edits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "edit",
			Name:      "cycles_total",
			Help:      "Edit cycles by outcome",
		}, []string{"status"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "edit",
			Name:      "rejections_total",
			Help:      "Rejected edit cycles by error code",
		}, []string{"code"}),
		editDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "patchbay",
			Subsystem: "edit",
			Name:      "duration_seconds",
			Help:      "Time spent in one edit cycle, lock held",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		planOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "edit",
			Name:      "plan_ops_total",
			Help:      "Applied plan operations by kind",
		}, []string{"op"}),
		generation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "patchbay",
			Subsystem: "graph",
			Name:      "generation",
			Help:      "Committed generation",
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "patchbay",
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Nodes in the graph, aggregation node included",
		}),
		blocks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "render",
			Name:      "blocks_total",
			Help:      "Blocks rendered through the graph",
		}),
		skippedBlocks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "render",
			Name:      "skipped_blocks_total",
			Help:      "Blocks output as silence because an edit held the lock",
		}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "control",
			Name:      "messages_total",
			Help:      "Control messages by result",
		}, []string{"result"}),
		journalErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "patchbay",
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "Edit cycles that could not be journaled",
		}),
	}
}

func (m *Metrics) observeEdit(plan *engine.Plan, err error, d time.Duration, gen int64, nodes int) {
	if m == nil {
		return
	}
	m.editDuration.Observe(d.Seconds())
	if err != nil {
		m.edits.WithLabelValues("rejected").Inc()
		m.rejections.WithLabelValues(errorCode(err)).Inc()
		return
	}
	m.edits.WithLabelValues("committed").Inc()
	s := plan.Summary()
	m.planOps.WithLabelValues("add").Add(float64(s.Adds))
	m.planOps.WithLabelValues("remove").Add(float64(s.Removes))
	m.planOps.WithLabelValues("update").Add(float64(s.Updates))
	m.planOps.WithLabelValues("delete").Add(float64(s.Deletes))
	m.generation.Set(float64(gen))
	m.nodes.Set(float64(nodes))
}

func (m *Metrics) observeBlock(skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.skippedBlocks.Inc()
		return
	}
	m.blocks.Inc()
}

func (m *Metrics) observeMessage(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.messages.WithLabelValues("error").Inc()
		return
	}
	m.messages.WithLabelValues("ok").Inc()
}

func (m *Metrics) observeJournalError() {
	if m == nil {
		return
	}
	m.journalErrors.Inc()
}
