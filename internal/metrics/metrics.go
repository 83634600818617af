package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for the ingestion service: inbound
// HTTP traffic plus the scrape/sweep counters.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	scrapesTotal   *prometheus.CounterVec
	postsAdmitted  prometheus.Counter
	postsRejected  *prometheus.CounterVec
	accountChecks  *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
}

// NewCollector constructs a collector with its own registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cliptrack",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cliptrack",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	scrapesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cliptrack",
		Subsystem: "ingestion",
		Name:      "scrapes_total",
		Help:      "Single-item scrapes by platform and outcome.",
	}, []string{"platform", "outcome"})

	postsAdmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cliptrack",
		Subsystem: "ingestion",
		Name:      "posts_admitted_total",
		Help:      "Posts that passed the admission gate and were persisted.",
	})

	postsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cliptrack",
		Subsystem: "ingestion",
		Name:      "posts_rejected_total",
		Help:      "Admission gate rejections by reason.",
	}, []string{"reason"})

	accountChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cliptrack",
		Subsystem: "ingestion",
		Name:      "account_checks_total",
		Help:      "Tracked-account checks by platform and outcome.",
	}, []string{"platform", "outcome"})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cliptrack",
		Subsystem: "ingestion",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of full account sweeps.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, scrapesTotal,
		postsAdmitted, postsRejected, accountChecks, sweepDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		scrapesTotal:    scrapesTotal,
		postsAdmitted:   postsAdmitted,
		postsRejected:   postsRejected,
		accountChecks:   accountChecks,
		sweepDuration:   sweepDuration,
	}, nil
}

// Handler returns an HTTP handler exposing the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveScrape records one single-item scrape outcome.
func (c *Collector) ObserveScrape(platform, outcome string) {
	if c == nil {
		return
	}
	c.scrapesTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveAdmission records one admitted post.
func (c *Collector) ObserveAdmission() {
	if c == nil {
		return
	}
	c.postsAdmitted.Inc()
}

// ObserveRejection records one gate rejection by reason.
func (c *Collector) ObserveRejection(reason string) {
	if c == nil {
		return
	}
	c.postsRejected.WithLabelValues(reason).Inc()
}

// ObserveAccountCheck records one tracked-account check outcome.
func (c *Collector) ObserveAccountCheck(platform, outcome string) {
	if c == nil {
		return
	}
	c.accountChecks.WithLabelValues(platform, outcome).Inc()
}

// ObserveSweep records a completed sweep's duration.
func (c *Collector) ObserveSweep(d time.Duration) {
	if c == nil {
		return
	}
	c.sweepDuration.Observe(d.Seconds())
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

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
