package reports

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheMetricsMu          sync.Mutex
	cacheMetricsInitialized bool

	cacheHitCounter   *prometheus.CounterVec
	cacheMissCounter  *prometheus.CounterVec
	buildHistogram    *prometheus.HistogramVec
	cacheMetricsError error
)

// SetupCacheMetrics registers report cache metrics. The registration is
// performed once and subsequent calls are ignored.
func SetupCacheMetrics(reg prometheus.Registerer) error {
	cacheMetricsMu.Lock()
	defer cacheMetricsMu.Unlock()
	if cacheMetricsInitialized {
		return cacheMetricsError
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cacheHitCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flockwatch_report_cache_hits_total",
		Help: "Number of report cache hits.",
	}, []string{"report"})
	cacheMissCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flockwatch_report_cache_miss_total",
		Help: "Number of report cache misses.",
	}, []string{"report"})
	buildHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flockwatch_report_build_duration_seconds",
		Help:    "Duration required to aggregate a report.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})

	for _, collector := range []prometheus.Collector{cacheHitCounter, cacheMissCounter, buildHistogram} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				switch c := already.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					if collector == cacheHitCounter {
						cacheHitCounter = c
					} else {
						cacheMissCounter = c
					}
				case *prometheus.HistogramVec:
					buildHistogram = c
				default:
					cacheMetricsError = fmt.Errorf("report cache metrics: unexpected collector type %T", c)
				}
				continue
			}
			cacheMetricsError = err
			cacheHitCounter = nil
			cacheMissCounter = nil
			buildHistogram = nil
			cacheMetricsInitialized = true
			return cacheMetricsError
		}
	}

	cacheMetricsInitialized = true
	return cacheMetricsError
}

func recordCacheHit(report string) {
	if cacheHitCounter == nil {
		return
	}
	cacheHitCounter.WithLabelValues(report).Inc()
}

func recordCacheMiss(report string) {
	if cacheMissCounter == nil {
		return
	}
	cacheMissCounter.WithLabelValues(report).Inc()
}

func observeBuildDuration(report string, d time.Duration) {
	if buildHistogram == nil {
		return
	}
	buildHistogram.WithLabelValues(report).Observe(d.Seconds())
}
