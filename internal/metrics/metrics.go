// Package metrics holds the domain counters of the consistency layer.
// HTTP request metrics live in the middleware package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	cacheRequests   *prometheus.CounterVec
	mirrorFailures  *prometheus.CounterVec
	mirrorDropped   prometheus.Counter
	reindexBatches  *prometheus.CounterVec
	authRejections  *prometheus.CounterVec
	reindexDuration prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketapi_cache_requests_total",
			Help: "Point cache lookups by entity kind and result (hit, miss, error).",
		}, []string{"kind", "result"}),
		mirrorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketapi_index_mirror_failures_total",
			Help: "Search index mirror calls that failed and were dropped.",
		}, []string{"op", "collection"}),
		mirrorDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketapi_index_mirror_dropped_total",
			Help: "Mirror tasks discarded because the queue was full or closed.",
		}),
		reindexBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketapi_reindex_batches_total",
			Help: "Reindex batches by collection and result (success, failure).",
		}, []string{"collection", "result"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketapi_auth_rejections_total",
			Help: "Requests rejected by the session gate by reason.",
		}, []string{"reason"}),
		reindexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketapi_reindex_duration_seconds",
			Help:    "Wall time of completed reindex runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.cacheRequests, m.mirrorFailures, m.mirrorDropped,
		m.reindexBatches, m.authRejections, m.reindexDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) CacheResult(kind, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) MirrorFailed(op, collection string) {
	if m == nil {
		return
	}
	m.mirrorFailures.WithLabelValues(op, collection).Inc()
}

func (m *Metrics) MirrorDropped() {
	if m == nil {
		return
	}
	m.mirrorDropped.Inc()
}

func (m *Metrics) ReindexBatch(collection string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.reindexBatches.WithLabelValues(collection, result).Inc()
}

func (m *Metrics) ReindexDone(seconds float64) {
	if m == nil {
		return
	}
	m.reindexDuration.Observe(seconds)
}

func (m *Metrics) AuthRejected(reason string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(reason).Inc()
}
