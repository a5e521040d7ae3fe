package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal       *prometheus.CounterVec
	answerAttempts     *prometheus.HistogramVec
	citationFailures   *prometheus.CounterVec
	retrievedEvidence  *prometheus.HistogramVec
	answerDuration     *prometheus.HistogramVec
	snapshotCacheTotal *prometheus.CounterVec
	legalFetchRefusals *prometheus.CounterVec
	service            string
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lca",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lca",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lca",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lca",
			Subsystem: "answer",
			Name:      "turns_total",
			Help:      "Total completed answer turns by final state.",
		},
		[]string{"service", "state"},
	)
	answerAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lca",
			Subsystem: "answer",
			Name:      "generation_attempts",
			Help:      "Distribution of generation attempts per answer turn.",
			Buckets:   []float64{1, 2, 3},
		},
		[]string{"service"},
	)
	citationFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lca",
			Subsystem: "answer",
			Name:      "citation_failures_total",
			Help:      "Total citation validation failures by reason.",
		},
		[]string{"service", "reason"},
	)
	retrievedEvidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lca",
			Subsystem: "retrieval",
			Name:      "evidence_items",
			Help:      "Distribution of evidence items retrieved per question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lca",
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "End-to-end answer turn duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	snapshotCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lca",
			Subsystem: "snapshot",
			Name:      "cache_total",
			Help:      "Legal snapshot cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	legalFetchRefusals := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lca",
			Subsystem: "snapshot",
			Name:      "whitelist_refusals_total",
			Help:      "Total legal page fetches refused by the domain whitelist.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerAttempts,
		citationFailures,
		retrievedEvidence,
		answerDuration,
		snapshotCacheTotal,
		legalFetchRefusals,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		answersTotal:       answersTotal,
		answerAttempts:     answerAttempts,
		citationFailures:   citationFailures,
		retrievedEvidence:  retrievedEvidence,
		answerDuration:     answerDuration,
		snapshotCacheTotal: snapshotCacheTotal,
		legalFetchRefusals: legalFetchRefusals,
		service:            service,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/legal/sources/"):
		return "/v1/legal/sources/{source_id}"
	case strings.HasPrefix(path, "/v1/cases/"):
		rest := strings.TrimPrefix(path, "/v1/cases/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/v1/cases/{case_id}/" + rest[i+1:]
		}
		return "/v1/cases/{case_id}"
	default:
		return path
	}
}

// AnswerFinished and CitationFailure satisfy the answer engine's metrics
// collaborator.
func (m *HTTPServerMetrics) AnswerFinished(state domain.AnswerState, attempts int) {
	m.answersTotal.WithLabelValues(m.service, string(state)).Inc()
	if attempts > 0 {
		m.answerAttempts.WithLabelValues(m.service).Observe(float64(attempts))
	}
}

func (m *HTTPServerMetrics) CitationFailure(reason domain.ValidationReason) {
	m.citationFailures.WithLabelValues(m.service, string(reason)).Inc()
}

func (m *HTTPServerMetrics) SnapshotCacheHit() {
	m.snapshotCacheTotal.WithLabelValues(m.service, "hit").Inc()
}

func (m *HTTPServerMetrics) SnapshotCacheMiss() {
	m.snapshotCacheTotal.WithLabelValues(m.service, "miss").Inc()
}

func (m *HTTPServerMetrics) WhitelistRefusal() {
	m.legalFetchRefusals.WithLabelValues(m.service).Inc()
}

func (m *HTTPServerMetrics) ObserveAnswerTurn(evidenceCount int, duration time.Duration) {
	m.retrievedEvidence.WithLabelValues(m.service).Observe(float64(evidenceCount))
	m.answerDuration.WithLabelValues(m.service).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
