// Package metrics is the registry's Prometheus instrumentation: cache
// hit/miss gauges over C1/C2, the on-disk file cache's size gauge
// (C3), and request/drain histograms for C4's gate and batch drain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/filecache"
)

// Metrics holds every Prometheus collector the daemon registers.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	FileCacheSize prometheus.GaugeFunc

	DrainDuration prometheus.Histogram
	DrainBatch    prometheus.Histogram
}

// New creates and registers every collector. fc and cacheClient may be
// nil (e.g. in tests exercising only the HTTP metrics), in which case
// the corresponding collectors are omitted.
func New(namespace string, cacheClient *cache.Client, fc *filecache.Cache) *Metrics {
	if namespace == "" {
		namespace = "mcjars_registry"
	}

	m := &Metrics{
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),

		RequestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of API requests handled",
			},
			[]string{"method", "path", "status"},
		),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of Redis result-cache hits",
		}),

		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of Redis result-cache misses",
		}),

		DrainDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telemetry_drain_duration_seconds",
			Help:      "Duration of the request-telemetry drain cycle",
			Buckets:   prometheus.DefBuckets,
		}),

		DrainBatch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telemetry_drain_batch_size",
			Help:      "Number of request records flushed per drain cycle",
			Buckets:   []float64{1, 5, 10, 15, 20, 25, 30},
		}),
	}

	if fc != nil {
		m.FileCacheSize = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "file_cache_bytes",
			Help:      "Current size of the on-disk artifact cache in bytes",
		}, func() float64 { return float64(fc.Size()) })
	}

	if cacheClient != nil {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_cache_hit_ratio",
			Help:      "Cumulative hit ratio of the Redis result cache",
		}, func() float64 {
			hits, misses := float64(cacheClient.Hits()), float64(cacheClient.Misses())
			if hits+misses == 0 {
				return 0
			}
			return hits / (hits + misses)
		})
	}

	return m
}

// ObserveRequest records one finished request's method/path/status and
// latency.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	labels := []string{method, path, statusClass(status)}
	m.RequestDuration.WithLabelValues(labels...).Observe(elapsed.Seconds())
	m.RequestTotal.WithLabelValues(labels...).Inc()
}

// ObserveDrain records one telemetry.Logger.Process cycle's duration and
// batch size.
func (m *Metrics) ObserveDrain(elapsed time.Duration, batchSize int) {
	m.DrainDuration.Observe(elapsed.Seconds())
	m.DrainBatch.Observe(float64(batchSize))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
