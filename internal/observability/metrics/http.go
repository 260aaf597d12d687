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
)

// HTTPServerMetrics owns the private registry exposed at /metrics. Beyond
// the generic HTTP instruments it tracks chat-pipeline outcomes: intent
// distribution, per-strategy candidate counts, follow-up exclusions, and
// requests answered without any corpus context.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatRequestsTotal       *prometheus.CounterVec
	chatIntentTotal         *prometheus.CounterVec
	chatNoContextTotal      *prometheus.CounterVec
	chatSources             *prometheus.HistogramVec
	chatDuration            *prometheus.HistogramVec
	strategyCandidatesTotal *prometheus.CounterVec
	exclusionsTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bka",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bka",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bka",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bka",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total successful chat requests.",
		},
		[]string{"service"},
	)
	chatIntentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bka",
			Subsystem: "chat",
			Name:      "intent_total",
			Help:      "Total successful chat requests by classified intent.",
		},
		[]string{"service", "intent"},
	)
	chatNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bka",
			Subsystem: "chat",
			Name:      "no_context_total",
			Help:      "Total chat requests answered without any corpus sources.",
		},
		[]string{"service"},
	)
	chatSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bka",
			Subsystem: "chat",
			Name:      "sources",
			Help:      "Distribution of cited sources per successful chat request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bka",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	strategyCandidatesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bka",
			Subsystem: "retrieval",
			Name:      "strategy_candidates_total",
			Help:      "Total raw candidates produced per retrieval strategy.",
		},
		[]string{"service", "strategy"},
	)
	exclusionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bka",
			Subsystem: "retrieval",
			Name:      "exclusions_total",
			Help:      "Total candidates excluded as previously recommended.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatIntentTotal,
		chatNoContextTotal,
		chatSources,
		chatDuration,
		strategyCandidatesTotal,
		exclusionsTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		chatRequestsTotal:       chatRequestsTotal,
		chatIntentTotal:         chatIntentTotal,
		chatNoContextTotal:      chatNoContextTotal,
		chatSources:             chatSources,
		chatDuration:            chatDuration,
		strategyCandidatesTotal: strategyCandidatesTotal,
		exclusionsTotal:         exclusionsTotal,
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

// RecordChatOutcome observes one completed chat request.
func (m *HTTPServerMetrics) RecordChatOutcome(service, intent string, sourceCount int, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.chatRequestsTotal.WithLabelValues(service).Inc()
	m.chatIntentTotal.WithLabelValues(service, intent).Inc()
	m.chatSources.WithLabelValues(service).Observe(float64(sourceCount))
	m.chatDuration.WithLabelValues(service).Observe(duration.Seconds())
	if sourceCount == 0 {
		m.chatNoContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordStrategyCandidates(service string, counts map[string]int) {
	for strategy, count := range counts {
		if count <= 0 {
			continue
		}
		m.strategyCandidatesTotal.WithLabelValues(service, strategy).Add(float64(count))
	}
}

func (m *HTTPServerMetrics) RecordExclusions(service string, excluded int) {
	if excluded <= 0 {
		return
	}
	m.exclusionsTotal.WithLabelValues(service).Add(float64(excluded))
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
