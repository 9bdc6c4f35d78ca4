// Package metrics exports store activity in Prometheus format.
package metrics

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcliao/reasoning-memory/internal/efficiency"
	"github.com/rcliao/reasoning-memory/internal/store"
)

const (
	namespace = "reasoning_memory"
	subsystem = "store"
)

// PrometheusExporter records store events. It satisfies store.Recorder for
// in-process stores; Sync feeds it from persisted totals instead. Use one
// or the other for a given namespace.
type PrometheusExporter struct {
	registry *prometheus.Registry

	puts           *prometheus.CounterVec
	evictions      *prometheus.CounterVec
	retrievals     *prometheus.CounterVec
	consolidations *prometheus.CounterVec
	mergedGroups   *prometheus.CounterVec
	pruned         *prometheus.CounterVec

	items       *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	meanValue   *prometheus.GaugeVec

	retrievalEfficiency *prometheus.HistogramVec

	mu     sync.Mutex
	synced map[string]store.Totals
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for the retrieval efficiency histogram
	EfficiencyBuckets []float64
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() Config {
	return Config{
		EfficiencyBuckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	}
}

// NewPrometheusExporter creates an exporter and registers its collectors.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.EfficiencyBuckets) == 0 {
		cfg.EfficiencyBuckets = DefaultConfig().EfficiencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, []string{"ns"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, []string{"ns"})
	}

	e := &PrometheusExporter{
		registry:       registry,
		synced:         make(map[string]store.Totals),
		puts:           counter("puts_total", "Total number of items put"),
		evictions:      counter("evictions_total", "Total number of items evicted over capacity"),
		retrievals:     counter("retrievals_total", "Total number of retrievals"),
		consolidations: counter("consolidations_total", "Total number of consolidation passes"),
		mergedGroups:   counter("merged_groups_total", "Total number of groups merged by consolidation"),
		pruned:         counter("pruned_total", "Total number of items pruned by consolidation"),
		items:          gauge("items", "Number of live items"),
		utilization:    gauge("budget_utilization", "Live items divided by capacity (0-1)"),
		meanValue:      gauge("mean_reasoning_value", "Mean reasoning value of live items (0-1)"),
		retrievalEfficiency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retrieval_efficiency",
			Help:      "Retrieval efficiency score per retrieval",
			Buckets:   cfg.EfficiencyBuckets,
		}, []string{"ns"}),
	}

	registry.MustRegister(
		e.puts,
		e.evictions,
		e.retrievals,
		e.consolidations,
		e.mergedGroups,
		e.pruned,
		e.items,
		e.utilization,
		e.meanValue,
		e.retrievalEfficiency,
	)
	return e
}

// RecordPut records an admitted item and any evictions it caused.
func (e *PrometheusExporter) RecordPut(ns string, evicted int) {
	e.puts.WithLabelValues(ns).Inc()
	if evicted > 0 {
		e.evictions.WithLabelValues(ns).Add(float64(evicted))
	}
}

// RecordRetrieval records one retrieval and its efficiency score.
func (e *PrometheusExporter) RecordRetrieval(ns string, efficiency float64) {
	e.retrievals.WithLabelValues(ns).Inc()
	e.retrievalEfficiency.WithLabelValues(ns).Observe(efficiency)
}

// RecordConsolidation records a consolidation pass.
func (e *PrometheusExporter) RecordConsolidation(ns string, groups, pruned int) {
	e.consolidations.WithLabelValues(ns).Inc()
	e.mergedGroups.WithLabelValues(ns).Add(float64(groups))
	e.pruned.WithLabelValues(ns).Add(float64(pruned))
}

// RecordState sets the store gauges.
func (e *PrometheusExporter) RecordState(ns string, count int, utilization, meanValue float64) {
	e.items.WithLabelValues(ns).Set(float64(count))
	e.utilization.WithLabelValues(ns).Set(utilization)
	e.meanValue.WithLabelValues(ns).Set(meanValue)
}

// Sync advances the counters of ns to t. Counters grow by the difference
// from the previous Sync; when any total shrank the namespace was reset and
// t is counted afresh. Each retrieval not seen before observes its sample
// from samples (oldest first) when the sample is still retained.
func (e *PrometheusExporter) Sync(ns string, t store.Totals, samples []efficiency.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.synced[ns]
	if shrank(t, prev) {
		prev = store.Totals{}
	}

	add(e.puts, ns, t.Puts-prev.Puts)
	add(e.evictions, ns, t.Evictions-prev.Evictions)
	add(e.retrievals, ns, t.Retrievals-prev.Retrievals)
	add(e.consolidations, ns, t.Consolidations-prev.Consolidations)
	add(e.mergedGroups, ns, t.MergedGroups-prev.MergedGroups)
	add(e.pruned, ns, t.Pruned-prev.Pruned)

	unseen := t.Retrievals - prev.Retrievals
	if unseen > len(samples) {
		unseen = len(samples)
	}
	h := e.retrievalEfficiency.WithLabelValues(ns)
	for _, smp := range samples[len(samples)-unseen:] {
		h.Observe(smp.Efficiency)
	}

	e.synced[ns] = t
}

// Forget removes every series of ns, e.g. after the namespace was dropped.
func (e *PrometheusExporter) Forget(ns string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range []*prometheus.CounterVec{e.puts, e.evictions, e.retrievals, e.consolidations, e.mergedGroups, e.pruned} {
		c.DeleteLabelValues(ns)
	}
	for _, g := range []*prometheus.GaugeVec{e.items, e.utilization, e.meanValue} {
		g.DeleteLabelValues(ns)
	}
	e.retrievalEfficiency.DeleteLabelValues(ns)
	delete(e.synced, ns)
}

// Synced returns the namespaces fed through Sync, sorted.
func (e *PrometheusExporter) Synced() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.synced))
	for ns := range e.synced {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

func shrank(cur, prev store.Totals) bool {
	return cur.Puts < prev.Puts || cur.Evictions < prev.Evictions || cur.Retrievals < prev.Retrievals ||
		cur.Consolidations < prev.Consolidations || cur.MergedGroups < prev.MergedGroups || cur.Pruned < prev.Pruned
}

func add(c *prometheus.CounterVec, ns string, n int) {
	c.WithLabelValues(ns).Add(float64(n))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// Registry returns the Prometheus registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}
