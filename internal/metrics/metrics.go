// Package metrics exposes lookup counters and knowledge base gauges to
// Prometheus.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/kb"
	"github.com/amigazen/insight/internal/logging"
)

// Lookup outcomes.
const (
	OutcomeFound      = "found"
	OutcomeNotFound   = "not_found"
	OutcomeInvalid    = "invalid"
	OutcomeAllocation = "allocation_failure"
)

var (
	liveResultsDesc = prometheus.NewDesc(
		"insight_live_results",
		"Lookup results handed out and not yet released",
		nil, nil,
	)
	liveHintBytesDesc = prometheus.NewDesc(
		"insight_live_hint_bytes",
		"Expanded hint bytes held by unreleased lookup results",
		nil, nil,
	)
	entriesDesc = prometheus.NewDesc(
		"insight_kb_entries",
		"Rows in the loaded knowledge base",
		nil, nil,
	)
	historyDesc = prometheus.NewDesc(
		"insight_history_records",
		"Lookup history records by outcome",
		[]string{"found"},
		nil,
	)
)

// Metrics owns a private registry so several servers (and tests) can
// coexist in one process.
type Metrics struct {
	registry *prometheus.Registry
	lookups  *prometheus.CounterVec
}

// New registers the lookup counter and a collector that reads base (and
// database, when non-nil) on every scrape.
func New(base *kb.Base, database *sql.DB, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = logging.Nop()
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_lookups_total",
			Help: "Alert code lookups by outcome and source",
		}, []string{"outcome", "source"}),
	}
	m.registry.MustRegister(m.lookups)
	m.registry.MustRegister(&kbCollector{base: base, db: database, logger: logger})
	return m
}

// RecordLookup counts one lookup. Safe to call on a nil *Metrics.
func (m *Metrics) RecordLookup(outcome, source string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome, source).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// kbCollector reads live state at scrape time instead of mirroring it.
type kbCollector struct {
	base   *kb.Base
	db     *sql.DB
	logger *zap.Logger
}

func (c *kbCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- liveResultsDesc
	ch <- liveHintBytesDesc
	ch <- entriesDesc
	if c.db != nil {
		ch <- historyDesc
	}
}

func (c *kbCollector) Collect(ch chan<- prometheus.Metric) {
	if c.base != nil {
		ch <- prometheus.MustNewConstMetric(liveResultsDesc, prometheus.GaugeValue, float64(c.base.Live()))
		ch <- prometheus.MustNewConstMetric(liveHintBytesDesc, prometheus.GaugeValue, float64(c.base.LiveHintBytes()))
		ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(c.base.Count()))
	}
	if c.db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	total, err := db.CountLookups(ctx, c.db, db.LookupFilter{})
	if err != nil {
		c.logger.Error("failed to collect history metrics", zap.Error(err))
		return
	}
	found, err := db.CountLookups(ctx, c.db, db.LookupFilter{FoundOnly: true})
	if err != nil {
		c.logger.Error("failed to collect history metrics", zap.Error(err))
		return
	}
	ch <- prometheus.MustNewConstMetric(historyDesc, prometheus.GaugeValue, float64(found), "true")
	ch <- prometheus.MustNewConstMetric(historyDesc, prometheus.GaugeValue, float64(total-found), "false")
}
