package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"resume-screener/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScreenerMetrics HTTP 请求和筛选流水线的 prometheus 指标
type ScreenerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	stageDuration     *prometheus.HistogramVec
	resumeOutcomes    *prometheus.CounterVec
	evaluatorCalls    *prometheus.CounterVec
	evaluatorDuration *prometheus.HistogramVec
	uploadsTotal      *prometheus.CounterVec
	cleanupTotal      *prometheus.CounterVec
}

// NewScreenerMetrics 创建独立 registry 上的指标集
func NewScreenerMetrics(namespace, service string) *ScreenerMetrics {
	if namespace == "" {
		namespace = "resume_screener"
	}
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds by stage and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage", "status"},
	)
	resumeOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "resumes_total",
			Help:      "Total screened resumes by outcome.",
		},
		[]string{"service", "outcome"},
	)
	evaluatorCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "calls_total",
			Help:      "Total evaluator calls by operation and status.",
		},
		[]string{"service", "op", "status"},
	)
	evaluatorDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "call_duration_seconds",
			Help:      "Evaluator call duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"service", "op"},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "files_total",
			Help:      "Total uploaded resume files by status.",
		},
		[]string{"service", "status"},
	)
	cleanupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "cleanup_total",
			Help:      "Total cleanup tasks by result.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		stageDuration,
		resumeOutcomes,
		evaluatorCalls,
		evaluatorDuration,
		uploadsTotal,
		cleanupTotal,
	)

	return &ScreenerMetrics{
		registry:          registry,
		service:           service,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		stageDuration:     stageDuration,
		resumeOutcomes:    resumeOutcomes,
		evaluatorCalls:    evaluatorCalls,
		evaluatorDuration: evaluatorDuration,
		uploadsTotal:      uploadsTotal,
		cleanupTotal:      cleanupTotal,
	}
}

// Registry 底层 registry
func (m *ScreenerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler net/http 形式的指标导出
func (m *ScreenerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HertzHandler hertz 路由使用的指标导出
func (m *ScreenerMetrics) HertzHandler() app.HandlerFunc {
	return adaptor.HertzHandler(m.Handler())
}

// Middleware 记录请求数、耗时和并发数
func (m *ScreenerMetrics) Middleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		c.Next(ctx)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := string(c.Method())
		m.requestTotal.WithLabelValues(m.service, method, path, strconv.Itoa(c.Response.StatusCode())).Inc()
		m.requestDuration.WithLabelValues(m.service, method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveStage 实现 processor.Observer
func (m *ScreenerMetrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.stageDuration.WithLabelValues(m.service, stage, status(err)).Observe(elapsed.Seconds())
}

// ObserveOutcome 实现 processor.Observer；kind 为空表示评分成功
func (m *ScreenerMetrics) ObserveOutcome(kind string) {
	outcome := "scored"
	if kind != "" {
		outcome = kind
	}
	m.resumeOutcomes.WithLabelValues(m.service, outcome).Inc()
}

// ObserveEvaluatorCall 与 parser.CallObserver 签名一致
func (m *ScreenerMetrics) ObserveEvaluatorCall(op string, elapsed time.Duration, err error) {
	callStatus := status(err)
	if err != nil {
		callStatus = string(types.Classify(err))
	}
	m.evaluatorCalls.WithLabelValues(m.service, op, callStatus).Inc()
	m.evaluatorDuration.WithLabelValues(m.service, op).Observe(elapsed.Seconds())
}

// ObserveUpload 记录一次上传
func (m *ScreenerMetrics) ObserveUpload(err error) {
	m.uploadsTotal.WithLabelValues(m.service, status(err)).Inc()
}

// ObserveCleanup 记录一次清理任务的结果
func (m *ScreenerMetrics) ObserveCleanup(err error) {
	m.cleanupTotal.WithLabelValues(m.service, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
