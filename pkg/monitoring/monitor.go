package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// GenerationCounter AI 调用次数，op: course/improve/quiz，result: success/failure
	GenerationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microcourse_generation_total",
			Help: "Total number of AI generation calls",
		},
		[]string{"op", "result"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microcourse_generation_duration_seconds",
			Help:    "Duration of AI generation calls",
			Buckets: []float64{1, 5, 15, 30, 60, 120},
		},
		[]string{"op"},
	)

	QuizResultCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microcourse_quiz_results_total",
			Help: "Module quiz results by outcome",
		},
		[]string{"result"},
	)

	BadgesAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "microcourse_badges_awarded_total",
			Help: "Total number of badges awarded",
		},
	)

	EnrollmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "microcourse_enrollments_created_total",
			Help: "Total number of enrollments created",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			GenerationCounter,
			GenerationDuration,
			QuizResultCounter,
			BadgesAwarded,
			EnrollmentsCreated,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
