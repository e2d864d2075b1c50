package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Counter interface {
	Inc(labels ...string)
	Add(n float64, labels ...string)
}

type Counters struct {
	EventsWritten Counter // engine, level
	EventsDeleted Counter // engine, reason
	WriteErrors   Counter // engine
	Queries       Counter // engine

	Storage *StorageHook

	gatherer prometheus.Gatherer
}

type PrometheusCounter struct {
	counter *prometheus.CounterVec
}

func newCounterVec(name, help string, labels []string) *PrometheusCounter {
	return &PrometheusCounter{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, labels),
	}
}

func (p *PrometheusCounter) Inc(labels ...string) {
	p.counter.WithLabelValues(labels...).Inc()
}

func (p *PrometheusCounter) Add(n float64, labels ...string) {
	p.counter.WithLabelValues(labels...).Add(n)
}

// New registers the counters with the default prometheus registry.
func New() *Counters {
	return build(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewTestCounters registers the counters with a private registry so tests
// can build many instances.
func NewTestCounters() *Counters {
	reg := prometheus.NewRegistry()
	return build(reg, reg)
}

func build(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Counters {
	written := newCounterVec("logbook_events_written_total", "Events appended to the store", []string{"engine", "level"})
	deleted := newCounterVec("logbook_events_deleted_total", "Events removed by retention or explicit deletion", []string{"engine", "reason"})
	writeErrs := newCounterVec("logbook_write_errors_total", "Failed asynchronous write batches", []string{"engine"})
	queries := newCounterVec("logbook_queries_total", "getLogs calls served", []string{"engine"})
	storage := newStorageHook()

	reg.MustRegister(written.counter, deleted.counter, writeErrs.counter, queries.counter)
	reg.MustRegister(storage.collectors()...)

	return &Counters{
		EventsWritten: written,
		EventsDeleted: deleted,
		WriteErrors:   writeErrs,
		Queries:       queries,
		Storage:       storage,
		gatherer:      gatherer,
	}
}

// Handler serves the registry the counters were registered with.
func (c *Counters) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the backing registry, mainly for tests.
func (c *Counters) Gatherer() prometheus.Gatherer { return c.gatherer }

// StorageHook observes pebble read and commit latencies.
type StorageHook struct {
	reads   prometheus.Histogram
	commits prometheus.Histogram
	bytes   prometheus.Counter
}

func newStorageHook() *StorageHook {
	return &StorageHook{
		reads: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "logbook_storage_read_seconds", Help: "Storage point read latency", Buckets: prometheus.DefBuckets,
		}),
		commits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "logbook_storage_commit_seconds", Help: "Storage batch commit latency", Buckets: prometheus.DefBuckets,
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbook_storage_committed_bytes_total", Help: "Bytes committed in storage batches",
		}),
	}
}

func (h *StorageHook) collectors() []prometheus.Collector {
	return []prometheus.Collector{h.reads, h.commits, h.bytes}
}

func (h *StorageHook) ObserveRead(elapsed time.Duration, _ int) {
	h.reads.Observe(elapsed.Seconds())
}

func (h *StorageHook) ObserveBatchCommit(elapsed time.Duration, _ int, bytes int) {
	h.commits.Observe(elapsed.Seconds())
	h.bytes.Add(float64(bytes))
}

type nopCounter struct{}

func (nopCounter) Inc(...string)          {}
func (nopCounter) Add(float64, ...string) {}

// Nop returns counters that record nothing.
func Nop() *Counters {
	return &Counters{
		EventsWritten: nopCounter{},
		EventsDeleted: nopCounter{},
		WriteErrors:   nopCounter{},
		Queries:       nopCounter{},
	}
}
