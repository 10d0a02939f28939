package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	attemptsStarted prometheus.Counter
	attemptsScored  prometheus.Counter
	submitReplays   prometheus.Counter
	scoreRatio      prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizd",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quizd",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		attemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizd",
			Name:      "attempts_started_total",
			Help:      "Attempts created",
		}),
		attemptsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizd",
			Name:      "attempts_scored_total",
			Help:      "Attempts transitioned to scored",
		}),
		submitReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizd",
			Name:      "submit_replays_total",
			Help:      "Submits answered with an already scored attempt",
		}),
		scoreRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizd",
			Name:      "attempt_score_ratio",
			Help:      "score/total of scored attempts",
			Buckets:   prometheus.LinearBuckets(0, 0.2, 6),
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration,
		m.attemptsStarted, m.attemptsScored, m.submitReplays, m.scoreRatio,
	)
	return m
}

// Middleware records count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) AttemptStarted() { m.attemptsStarted.Inc() }

func (m *Metrics) AttemptScored(score, total int, replayed bool) {
	if replayed {
		m.submitReplays.Inc()
		return
	}
	m.attemptsScored.Inc()
	if total > 0 {
		m.scoreRatio.Observe(float64(score) / float64(total))
	}
}
