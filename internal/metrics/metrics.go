package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dependency labels
const (
	Embed        = "embed"
	VectorSearch = "vector_search"
	VectorUpsert = "vector_upsert"
	LLM          = "llm"
)

// chat path labels
const (
	PathAgent       = "agent"
	PathFallback    = "fallback"
	PathSmallTalk   = "smalltalk"
	PathUnavailable = "unavailable"
	PathEmpty       = "empty"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var chatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "chat_request_duration_seconds",
	Help:    "Time spent answering one chat message, by answering path.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"path"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

var ingestedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingested_chunks_total",
	Help: "Chunks written to the vector index, by corpus.",
}, []string{"corpus"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureChatMetrics(path string, timeElapsed time.Duration) {
	chatDuration.WithLabelValues(path).Observe(timeElapsed.Seconds())
}

func AddIngestedChunks(corpus string, n int) {
	ingestedChunks.WithLabelValues(corpus).Add(float64(n))
}

// StatusRecorder keeps the status code written through it
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by route path and status code
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	})
}
