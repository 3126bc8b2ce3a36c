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
	// 连接指标
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter

	// 帧指标
	framesReceived prometheus.Counter
	framesEvicted  prometheus.Counter
	protocolErrors prometheus.Counter

	// 推理指标
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	inferenceErrors    *prometheus.CounterVec
	swingsDetected     prometheus.Counter
	swingConfidence    prometheus.Histogram

	// 会话指标（客户端侧）
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	reconnectsTotal prometheus.Counter
	promptsPlayed   prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 连接指标
	c.connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "detect_connections_active",
		Help:      "Number of active detection connections",
	})

	c.connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detect_connections_total",
		Help:      "Total number of detection connections accepted",
	})

	// 帧指标
	c.framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Total number of frames received over detection connections",
	})

	c.framesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_evicted_total",
		Help:      "Total number of frames evicted from context windows",
	})

	c.protocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_errors_total",
		Help:      "Total number of malformed inbound messages",
	})

	// 推理指标
	c.evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of inference evaluations",
		},
		[]string{"backend"},
	)

	c.evaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Inference evaluation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"backend"},
	)

	c.inferenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Total number of inference backend failures",
		},
		[]string{"backend"},
	)

	c.swingsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "swings_detected_total",
		Help:      "Total number of swings detected",
	})

	c.swingConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "swing_confidence",
		Help:      "Confidence of detected swings",
		Buckets:   prometheus.LinearBuckets(0.5, 0.05, 10),
	})

	// 会话指标
	c.sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recording sessions by outcome",
		},
		[]string{"outcome"}, // completed, timeout, error
	)

	c.sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_seconds",
		Help:      "Recording session duration in seconds",
		Buckets:   []float64{10, 30, 60, 90, 120, 180, 300},
	})

	c.reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_reconnects_total",
		Help:      "Total number of detection channel reconnect attempts",
	})

	c.promptsPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_prompts_played_total",
		Help:      "Total number of voice prompts played",
	})

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 连接与帧指标记录
// =============================================================================

// RecordConnectionOpened 记录一条检测连接建立
func (c *Collector) RecordConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

// RecordConnectionClosed 记录一条检测连接关闭
func (c *Collector) RecordConnectionClosed() {
	c.connectionsActive.Dec()
}

// RecordFrameReceived 记录一帧到达及其触发的窗口淘汰数
func (c *Collector) RecordFrameReceived(evicted int) {
	c.framesReceived.Inc()
	if evicted > 0 {
		c.framesEvicted.Add(float64(evicted))
	}
}

// RecordProtocolError 记录一次入站消息格式错误
func (c *Collector) RecordProtocolError() {
	c.protocolErrors.Inc()
}

// =============================================================================
// 🧠 推理指标记录
// =============================================================================

// RecordEvaluation 记录一次推理评估
func (c *Collector) RecordEvaluation(backend string, duration time.Duration) {
	c.evaluationsTotal.WithLabelValues(backend).Inc()
	c.evaluationDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordInferenceError 记录一次推理后端失败
func (c *Collector) RecordInferenceError(backend string) {
	c.inferenceErrors.WithLabelValues(backend).Inc()
}

// RecordSwingDetected 记录一次挥杆检出
func (c *Collector) RecordSwingDetected(confidence float64) {
	c.swingsDetected.Inc()
	c.swingConfidence.Observe(confidence)
}

// =============================================================================
// 🎬 会话指标记录
// =============================================================================

// RecordSession 记录一次会话结束
func (c *Collector) RecordSession(outcome string, duration time.Duration) {
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	c.sessionDuration.Observe(duration.Seconds())
}

// RecordReconnect 记录一次重连尝试
func (c *Collector) RecordReconnect() {
	c.reconnectsTotal.Inc()
}

// RecordPromptPlayed 记录一条语音提示播放完成
func (c *Collector) RecordPromptPlayed() {
	c.promptsPlayed.Inc()
}
