package detect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/config"
	"github.com/fairwaylab/swingsense/internal/metrics"
	"github.com/fairwaylab/swingsense/protocol"
)

// Engine 单连接的检测状态机：Collecting → Evaluating → (Cooldown | Collecting)。
//
// 每个连接持有独立的 Engine 与 ContextWindow，连接之间不共享可变状态。
// 所有窗口变更与提交决策都在消息处理路径上同步完成。
type Engine struct {
	cfg       config.DetectionConfig
	window    *ContextWindow
	backend   Backend
	logger    *zap.Logger
	collector *metrics.Collector

	cooldownUntil time.Time
	now           func() time.Time // 测试注入
}

// NewEngine 为一条新连接创建检测状态机。
// 新连接总是从空窗口开始，重连后不保留旧连接的帧。
func NewEngine(cfg config.DetectionConfig, backend Backend, collector *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		window:    NewContextWindow(cfg.ContextExpiry),
		backend:   backend,
		logger:    logger.With(zap.String("component", "detect_engine")),
		collector: collector,
		now:       time.Now,
	}
}

// HandleFrame 处理一帧入站消息并返回应回推给客户端的事件。
//
// 推理失败与消息格式错误都以 status:"error" 上报，连接与窗口保持存活。
func (e *Engine) HandleFrame(ctx context.Context, raw []byte) protocol.EventMessage {
	msg, err := protocol.ParseFrame(raw)
	if err != nil {
		e.logger.Warn("malformed frame message", zap.Error(err))
		if e.collector != nil {
			e.collector.RecordProtocolError()
		}
		return protocol.NewErrorEvent("malformed frame: " + err.Error())
	}

	evicted := e.window.Append(WindowFrame{Timestamp: msg.Timestamp, Image: msg.ImageBase64})
	if e.collector != nil {
		e.collector.RecordFrameReceived(evicted)
	}

	// 冷却期内照常缓冲，但不评估
	if remaining := e.cooldownUntil.Sub(e.now()); remaining > 0 {
		return protocol.NewCooldown(remaining.Seconds())
	}

	// 跨度不足，等待更多数据
	if e.window.Span() < e.cfg.SubmissionThreshold {
		return protocol.NewAwaitingMoreData(e.window.Span(), e.window.Len())
	}

	return e.evaluate(ctx, msg.Timestamp)
}

// evaluate 提交当前窗口给推理后端并处理结论。
func (e *Engine) evaluate(ctx context.Context, frameTS float64) protocol.EventMessage {
	start := e.now()
	result, err := e.backend.Evaluate(ctx, e.window.Snapshot())
	if err != nil {
		e.logger.Error("inference backend failed", zap.Error(err))
		if e.collector != nil {
			e.collector.RecordInferenceError(e.backend.Name())
		}
		return protocol.NewErrorEvent("inference failed")
	}
	if e.collector != nil {
		e.collector.RecordEvaluation(e.backend.Name(), e.now().Sub(start))
	}

	if result.SwingDetected {
		// 进入冷却并清空窗口，下一次挥杆从空缓冲开始
		e.cooldownUntil = e.now().Add(e.cfg.Cooldown)
		e.window.Clear()
		if e.collector != nil {
			e.collector.RecordSwingDetected(result.Confidence)
		}
		e.logger.Info("swing detected",
			zap.Float64("confidence", result.Confidence),
			zap.Float64("timestamp", frameTS),
		)
		return protocol.NewEvaluated(true, result.Confidence, frameTS)
	}

	// 未检出：保留（已裁剪的）窗口等待下一次评估
	return protocol.NewEvaluated(false, result.Confidence, frameTS)
}

// InCooldown 报告状态机当前是否处于冷却期。
func (e *Engine) InCooldown() bool {
	return e.cooldownUntil.After(e.now())
}

// WindowLen 返回当前窗口帧数（诊断用）。
func (e *Engine) WindowLen() int {
	return e.window.Len()
}
