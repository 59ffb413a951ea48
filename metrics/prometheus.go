// Package metrics exports engine metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lakescan"

// Collector records engine events as Prometheus metrics. It satisfies
// lakescan.MetricsCollector.
type Collector struct {
	Windows        *prometheus.CounterVec
	WindowBytes    prometheus.Counter
	WindowLatency  prometheus.Histogram
	Scans          *prometheus.CounterVec
	ScanLatency    *prometheus.HistogramVec
	ScanRows       *prometheus.HistogramVec
	CapReached     prometheus.Counter
	Samples        *prometheus.CounterVec
	SampleLatency  prometheus.Histogram
	Representative prometheus.Histogram
	CacheRequests  *prometheus.CounterVec
	WarmPasses     prometheus.Counter
	WarmRefreshed  prometheus.Counter
	WarmFailures   prometheus.Counter
	WarmLatency    prometheus.Histogram
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Byte windows fetched, by status",
		}, []string{"status"}),
		WindowBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_bytes_total",
			Help:      "Bytes fetched by range reads",
		}),
		WindowLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_duration_seconds",
			Help:      "Latency of a single window fetch",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Object scans, by mode and status",
		}, []string{"mode", "status"}),
		ScanLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Latency of object scans",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		ScanRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_rows",
			Help:      "Rows returned per scan",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"mode"}),
		CapReached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cap_reached_total",
			Help:      "Scans stopped by the safety ceiling",
		}),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples produced, by strategy",
		}, []string{"strategy"}),
		SampleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_duration_seconds",
			Help:      "End-to-end latency of sample requests",
			Buckets:   prometheus.DefBuckets,
		}),
		Representative: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_representativeness",
			Help:      "Representativeness score of produced samples",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Result cache lookups, by outcome",
		}, []string{"result"}),
		WarmPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warm_passes_total",
			Help:      "Completed cache warm passes",
		}),
		WarmRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warm_refreshed_total",
			Help:      "Cache entries refreshed by the warmer",
		}),
		WarmFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warm_failures_total",
			Help:      "Warm tasks that failed",
		}),
		WarmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warm_duration_seconds",
			Help:      "Latency of cache warm passes",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.Windows, c.WindowBytes, c.WindowLatency,
		c.Scans, c.ScanLatency, c.ScanRows, c.CapReached,
		c.Samples, c.SampleLatency, c.Representative,
		c.CacheRequests,
		c.WarmPasses, c.WarmRefreshed, c.WarmFailures, c.WarmLatency,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) RecordWindow(bytes int, d time.Duration, err error) {
	if err != nil {
		c.Windows.WithLabelValues("skipped").Inc()
		return
	}
	c.Windows.WithLabelValues("success").Inc()
	c.WindowBytes.Add(float64(bytes))
	c.WindowLatency.Observe(d.Seconds())
}

func (c *Collector) RecordScan(mode string, rows int, capReached bool, d time.Duration, err error) {
	c.Scans.WithLabelValues(mode, status(err)).Inc()
	if err != nil {
		return
	}
	c.ScanLatency.WithLabelValues(mode).Observe(d.Seconds())
	c.ScanRows.WithLabelValues(mode).Observe(float64(rows))
	if capReached {
		c.CapReached.Inc()
	}
}

func (c *Collector) RecordSample(strategy string, _ int, representativeness float64, d time.Duration) {
	c.Samples.WithLabelValues(strategy).Inc()
	c.SampleLatency.Observe(d.Seconds())
	c.Representative.Observe(representativeness)
}

func (c *Collector) RecordCache(hit bool) {
	if hit {
		c.CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	c.CacheRequests.WithLabelValues("miss").Inc()
}

func (c *Collector) RecordWarm(refreshed, failed int, d time.Duration) {
	c.WarmPasses.Inc()
	c.WarmRefreshed.Add(float64(refreshed))
	c.WarmFailures.Add(float64(failed))
	c.WarmLatency.Observe(d.Seconds())
}
