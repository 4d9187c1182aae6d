package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and the
// collection pipeline.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	pipelineRuns     *prometheus.CounterVec
	recordsProcessed *prometheus.CounterVec
	fetchRetries     prometheus.Counter
	pipelineDuration prometheus.Histogram
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventdash",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventdash",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	pipelineRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventdash",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of pipeline runs by outcome.",
	}, []string{"source", "outcome"})

	recordsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventdash",
		Subsystem: "pipeline",
		Name:      "records_total",
		Help:      "Event records processed, partitioned by batch outcome.",
	}, []string{"source", "result"})

	fetchRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventdash",
		Subsystem: "fetch",
		Name:      "retries_total",
		Help:      "Total number of rate-limit retries issued by the fetcher.",
	})

	pipelineDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventdash",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of full pipeline runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, pipelineRuns, recordsProcessed, fetchRetries, pipelineDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	collector := &Collector{
		registry:         registry,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		pipelineRuns:     pipelineRuns,
		recordsProcessed: recordsProcessed,
		fetchRetries:     fetchRetries,
		pipelineDuration: pipelineDuration,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObservePipelineRun records the outcome and duration of one pipeline run.
func (c *Collector) ObservePipelineRun(source, outcome string, elapsed time.Duration) {
	c.pipelineRuns.WithLabelValues(source, outcome).Inc()
	c.pipelineDuration.Observe(elapsed.Seconds())
}

// AddRecords accumulates batch outcome counts for a source.
func (c *Collector) AddRecords(source, result string, n int) {
	if n <= 0 {
		return
	}
	c.recordsProcessed.WithLabelValues(source, result).Add(float64(n))
}

// IncFetchRetry counts one rate-limit retry.
func (c *Collector) IncFetchRetry() {
	c.fetchRetries.Inc()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
