package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prepmate",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "prepmate",
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})

	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "llm_calls_total",
		Help:      "Total number of LLM provider calls",
	}, []string{"channel", "outcome"})

	llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prepmate",
		Name:      "llm_call_duration_seconds",
		Help:      "Duration of LLM provider calls in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"channel"})

	turnsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "interview_turns_total",
		Help:      "Total number of interview turns processed, by decision",
	}, []string{"decision"})

	analysisJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "analysis_jobs_total",
		Help:      "Total number of background analysis jobs, by outcome",
	}, []string{"outcome"})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// SSE responses need the flush to reach the underlying writer.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request metrics with Prometheus labels.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			httpInFlight.Inc()
			defer httpInFlight.Dec()

			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": strconv.Itoa(rec.status),
			}
			httpRequests.With(labels).Inc()
			httpLatency.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

// ObserveLLMCall records one provider call.
func ObserveLLMCall(channel string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmCalls.WithLabelValues(channel, outcome).Inc()
	llmLatency.WithLabelValues(channel).Observe(duration.Seconds())
}

// ObserveTurn records one processed interview turn by its routing decision.
func ObserveTurn(decision string) {
	turnsProcessed.WithLabelValues(decision).Inc()
}

// ObserveAnalysisJob records one background analysis job outcome.
func ObserveAnalysisJob(outcome string) {
	analysisJobs.WithLabelValues(outcome).Inc()
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
