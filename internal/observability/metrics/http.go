package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// HTTPServerMetrics bundles request-level and retrieval-level metrics for the
// API service into one registry. It implements usecase.RetrievalMetrics so
// the orchestrator can report without knowing about prometheus.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	variantSearchTotal *prometheus.CounterVec
	variantResults     *prometheus.HistogramVec
	batchResults       *prometheus.HistogramVec
	fallbackTotal      *prometheus.CounterVec
	rerankTotal        *prometheus.CounterVec

	answersTotal   *prometheus.CounterVec
	answerRetries  *prometheus.HistogramVec
	groundingScore *prometheus.HistogramVec
	qualityScore   *prometheus.HistogramVec
	answerDuration *prometheus.HistogramVec
	noContextTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	variantSearchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqa",
			Subsystem: "retrieval",
			Name:      "variant_searches_total",
			Help:      "Total per-variant hybrid searches by language and status.",
		},
		[]string{"service", "language", "status"},
	)
	variantResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "retrieval",
			Name:      "variant_results",
			Help:      "Distribution of results returned per variant search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "language"},
	)
	batchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "retrieval",
			Name:      "batch_results",
			Help:      "Distribution of deduplicated results per retrieval batch.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqa",
			Subsystem: "retrieval",
			Name:      "filter_fallback_total",
			Help:      "Total retrieval batches that dropped filters and retried.",
		},
		[]string{"service"},
	)
	rerankTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqa",
			Subsystem: "retrieval",
			Name:      "rerank_total",
			Help:      "Total retrieval batches that went through model reranking.",
		},
		[]string{"service"},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqa",
			Subsystem: "answer",
			Name:      "answers_total",
			Help:      "Total answers produced by acceptance status.",
		},
		[]string{"service", "status"},
	)
	answerRetries := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "answer",
			Name:      "corrective_retries",
			Help:      "Distribution of corrective retries per answered query.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	groundingScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "answer",
			Name:      "hallucination_score",
			Help:      "Distribution of final hallucination scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"service"},
	)
	qualityScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "answer",
			Name:      "quality_score",
			Help:      "Distribution of final composite quality scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"service"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mqa",
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "End-to-end answer duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mqa",
			Subsystem: "answer",
			Name:      "no_context_total",
			Help:      "Total questions answered without any retrieved documents.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		variantSearchTotal,
		variantResults,
		batchResults,
		fallbackTotal,
		rerankTotal,
		answersTotal,
		answerRetries,
		groundingScore,
		qualityScore,
		answerDuration,
		noContextTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		service:            service,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		variantSearchTotal: variantSearchTotal,
		variantResults:     variantResults,
		batchResults:       batchResults,
		fallbackTotal:      fallbackTotal,
		rerankTotal:        rerankTotal,
		answersTotal:       answersTotal,
		answerRetries:      answerRetries,
		groundingScore:     groundingScore,
		qualityScore:       qualityScore,
		answerDuration:     answerDuration,
		noContextTotal:     noContextTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
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

// ObserveVariantSearch implements usecase.RetrievalMetrics.
func (m *HTTPServerMetrics) ObserveVariantSearch(lang domain.Language, resultCount int, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	m.variantSearchTotal.WithLabelValues(m.service, string(lang), status).Inc()
	if !failed {
		m.variantResults.WithLabelValues(m.service, string(lang)).Observe(float64(resultCount))
	}
}

// ObserveBatch implements usecase.RetrievalMetrics.
func (m *HTTPServerMetrics) ObserveBatch(resultCount int, fallback, reranked bool) {
	m.batchResults.WithLabelValues(m.service).Observe(float64(resultCount))
	if fallback {
		m.fallbackTotal.WithLabelValues(m.service).Inc()
	}
	if reranked {
		m.rerankTotal.WithLabelValues(m.service).Inc()
	}
}

// RecordAnswer reports one completed answer flow.
func (m *HTTPServerMetrics) RecordAnswer(accepted bool, retryCount int, hallucination, quality float64, duration time.Duration) {
	status := "accepted"
	if !accepted {
		status = "exhausted"
	}
	m.answersTotal.WithLabelValues(m.service, status).Inc()
	m.answerRetries.WithLabelValues(m.service).Observe(float64(retryCount))
	m.groundingScore.WithLabelValues(m.service).Observe(hallucination)
	m.qualityScore.WithLabelValues(m.service).Observe(quality)
	m.answerDuration.WithLabelValues(m.service).Observe(duration.Seconds())
}

// RecordNoContext reports a question that retrieved nothing.
func (m *HTTPServerMetrics) RecordNoContext() {
	m.noContextTotal.WithLabelValues(m.service).Inc()
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
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
