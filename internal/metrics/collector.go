// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 转接指标
	transfersTotal   *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	activeTransfers  prometheus.Gauge
	reaperEvictions  *prometheus.CounterVec

	// 令牌指标
	tokensIssuedTotal *prometheus.CounterVec

	// 房间指标
	roomsCreatedTotal prometheus.Counter
	roomAPIErrors     *prometheus.CounterVec

	// 摘要指标
	summariesTotal     *prometheus.CounterVec
	sentimentFallbacks prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 转接指标
	c.transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Total number of finished transfers by terminal state",
		},
		[]string{"status"},
	)

	c.transferDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Transfer duration from initiation to terminal state",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)

	c.activeTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_transfers",
			Help:      "Number of transfers currently in the initiated state",
		},
	)

	c.reaperEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_evictions_total",
			Help:      "Total number of sessions evicted by the reaper",
		},
		[]string{"state"},
	)

	// 令牌指标
	c.tokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of access tokens issued",
		},
		[]string{"role"},
	)

	// 房间指标
	c.roomsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created through the facade",
		},
	)

	c.roomAPIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_api_errors_total",
			Help:      "Total number of media provider API errors",
		},
		[]string{"operation", "code"},
	)

	// 摘要指标
	c.summariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_generated_total",
			Help:      "Total number of summary generation attempts",
		},
		[]string{"type", "status"},
	)

	c.sentimentFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentiment_fallbacks_total",
			Help:      "Total number of sentiment analyses degraded to keyword matching",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🔄 转接指标记录
// =============================================================================

// RecordTransfer 记录转接终态及其持续时间
func (c *Collector) RecordTransfer(status string, duration time.Duration) {
	c.transfersTotal.WithLabelValues(status).Inc()
	c.transferDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetActiveTransfers 更新活跃转接数
func (c *Collector) SetActiveTransfers(n int) {
	c.activeTransfers.Set(float64(n))
}

// RecordReaperEviction 记录回收器驱逐的会话
func (c *Collector) RecordReaperEviction(state string) {
	c.reaperEvictions.WithLabelValues(state).Inc()
}

// RecordTokenIssued 记录令牌签发
func (c *Collector) RecordTokenIssued(role string) {
	c.tokensIssuedTotal.WithLabelValues(role).Inc()
}

// =============================================================================
// 🏠 房间指标记录
// =============================================================================

// RecordRoomCreated 记录房间创建
func (c *Collector) RecordRoomCreated() {
	c.roomsCreatedTotal.Inc()
}

// RecordRoomAPIError 记录媒体服务 API 错误
func (c *Collector) RecordRoomAPIError(operation, code string) {
	c.roomAPIErrors.WithLabelValues(operation, code).Inc()
}

// =============================================================================
// 📝 摘要指标记录
// =============================================================================

// RecordSummary 记录摘要生成结果
func (c *Collector) RecordSummary(summaryType, status string) {
	c.summariesTotal.WithLabelValues(summaryType, status).Inc()
}

// RecordSentimentFallback 记录情感分析降级
func (c *Collector) RecordSentimentFallback() {
	c.sentimentFallbacks.Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
