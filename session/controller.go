package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/internal/metrics"
	"github.com/fairwaylab/swingsense/types"
	"github.com/fairwaylab/swingsense/voice"
)

// ===== 🎯 会话控制器 =====

// Phase 会话阶段.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseRecording  Phase = "recording"
	PhaseProcessing Phase = "processing"
	PhaseError      Phase = "error"
)

// FinishReason 会话结束原因.
type FinishReason string

const (
	// ReasonCompleted 达到目标挥杆数
	ReasonCompleted FinishReason = "completed"
	// ReasonTimeout 截止时间到期（正常路径，产出部分结果）
	ReasonTimeout FinishReason = "timeout"
	// ReasonStopped 用户语音停止命令
	ReasonStopped FinishReason = "stopped"
	// ReasonFatal 不可恢复的建连/硬件失败
	ReasonFatal FinishReason = "fatal"
)

// swingCue 每次计入一次挥杆时先播放的短提示音.
// 合成器就是唯一的音频出口，提示音与播报走同一条 FIFO 队列.
const swingCue = "Ding."

// Session 一次录制会话的快照.
type Session struct {
	ID           string
	Phase        Phase
	SwingCount   int
	TargetSwings int
	StartedAt    time.Time
	DeadlineAt   time.Time
	FinishedAt   time.Time
	FinishReason FinishReason
	// Err 仅在 Error 阶段填充
	Err error
}

// DetectionLink 控制器依赖的检测通道契约.
type DetectionLink interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, frame types.Frame) error
	Close() error
}

// Prompter 控制器依赖的语音提示契约.
type Prompter interface {
	Enqueue(p voice.Prompt) error
	SetListening(enabled bool) error
}

// Recorder 会话历史落库契约（可选）.
type Recorder interface {
	Record(ctx context.Context, s Session) error
}

// AnalysisSubmitter 下游视频分析服务契约（可选，不透明）.
// 会话进入 Processing 后收到完成的录制结果.
type AnalysisSubmitter interface {
	Submit(ctx context.Context, s Session) error
}

// ControllerConfig 配置会话控制器.
type ControllerConfig struct {
	// TargetSwings 目标挥杆数，达到后自动结束
	TargetSwings int
	// Deadline 会话截止时长
	Deadline time.Duration
	// ConfidenceThreshold 低于该值的检出不计数
	ConfidenceThreshold float64
}

// Controller 顶层会话状态机.
//
// 同一设备同一时刻至多一个活动会话，由阶段守卫保证.
// 检测结果、语音命令、截止定时器、致命错误全部经过同一把锁
// 串行化，阶段迁移不存在竞态.
type Controller struct {
	config    ControllerConfig
	sampler   *FrameSampler
	link      DetectionLink
	prompter  Prompter
	recorder  Recorder
	analysis  AnalysisSubmitter
	collector *metrics.Collector
	logger    *zap.Logger

	mu       sync.Mutex
	session  *Session
	deadline *time.Timer

	// 在途发送任务集合：finishSession 一步取消全部
	sendCtx    context.Context
	sendCancel context.CancelFunc
	sendWG     sync.WaitGroup

	now func() time.Time
}

// NewController 创建会话控制器，初始处于 Setup 阶段.
func NewController(
	config ControllerConfig,
	sampler *FrameSampler,
	link DetectionLink,
	prompter Prompter,
	recorder Recorder,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TargetSwings <= 0 {
		config.TargetSwings = 3
	}
	if config.Deadline <= 0 {
		config.Deadline = 2 * time.Minute
	}
	return &Controller{
		config:    config,
		sampler:   sampler,
		link:      link,
		prompter:  prompter,
		recorder:  recorder,
		collector: collector,
		logger:    logger.With(zap.String("component", "session_controller")),
		now:       time.Now,
	}
}

// WithAnalysis 设置下游视频分析服务.
func (c *Controller) WithAnalysis(a AnalysisSubmitter) *Controller {
	c.analysis = a
	return c
}

// StartSession 从 Setup 进入 Recording.
// 已在 Recording 时为幂等空操作：会话 id 与计数保持不变.
func (c *Controller) StartSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	phase := c.phaseLocked()
	switch phase {
	case PhaseRecording:
		return nil
	case PhaseProcessing, PhaseError:
		return types.NewError(types.ErrInvalidTransition,
			fmt.Sprintf("cannot start session from %s phase", phase))
	}

	id := uuid.NewString()
	startedAt := c.now()
	c.session = &Session{
		ID:           id,
		Phase:        PhaseRecording,
		TargetSwings: c.config.TargetSwings,
		StartedAt:    startedAt,
		DeadlineAt:   startedAt.Add(c.config.Deadline),
	}

	c.sendCtx, c.sendCancel = context.WithCancel(ctx)
	c.sampler.Start()

	if err := c.link.Connect(ctx); err != nil {
		c.finishLocked(ctx, ReasonFatal, err)
		return err
	}

	c.deadline = time.AfterFunc(c.config.Deadline, func() { c.onDeadline(ctx, id) })

	// 初始提示播完后才开始语音命令监听
	if c.prompter != nil {
		if err := c.prompter.Enqueue(voice.Prompt{
			Text:   "Recording started. Go ahead and swing.",
			OnDone: func() { _ = c.prompter.SetListening(true) },
		}); err != nil {
			c.logger.Warn("failed to enqueue start prompt", zap.Error(err))
		}
	}

	c.logger.Info("session started",
		zap.String("session_id", id),
		zap.Int("target_swings", c.config.TargetSwings))
	return nil
}

// OnCameraFrame 相机回调入口：采样放行后以独立可取消任务发送.
// 丢帧可接受，下一个采样周期重试即可.
func (c *Controller) OnCameraFrame(frame types.Frame) {
	c.mu.Lock()
	if c.phaseLocked() != PhaseRecording {
		c.mu.Unlock()
		return
	}
	if !c.sampler.Offer(frame) {
		c.mu.Unlock()
		return
	}
	sendCtx := c.sendCtx
	c.sendWG.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.sendWG.Done()
		if err := c.link.Send(sendCtx, frame); err != nil {
			c.logger.Debug("frame send skipped",
				zap.Float64("timestamp", frame.Timestamp),
				zap.Error(err))
		}
	}()
}

// OnDetectionEvent 检测事件入口.
// 仅在 Recording 阶段且置信度达标时计数；达到目标后结束会话，恰好一次.
func (c *Controller) OnDetectionEvent(ctx context.Context, result DetectionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phaseLocked() != PhaseRecording {
		return
	}
	if !result.SwingDetected || result.Confidence < c.config.ConfidenceThreshold {
		return
	}
	if c.session.SwingCount >= c.session.TargetSwings {
		return
	}

	c.session.SwingCount++
	count := c.session.SwingCount
	c.logger.Info("swing counted",
		zap.Int("count", count),
		zap.Int("target", c.session.TargetSwings),
		zap.Float64("confidence", result.Confidence))

	// 每次计数先播一声短促提示音，再跟里程碑播报；
	// 两条按 FIFO 排队，播放期间监听由序列器统一暂停/恢复
	if c.prompter != nil {
		_ = c.prompter.Enqueue(voice.Prompt{Text: swingCue})
	}

	if count >= c.session.TargetSwings {
		if c.prompter != nil {
			_ = c.prompter.Enqueue(voice.Prompt{Text: "That's all the swings. Great work."})
		}
		c.finishLocked(ctx, ReasonCompleted, nil)
		return
	}

	if c.prompter != nil {
		_ = c.prompter.Enqueue(voice.Prompt{Text: fmt.Sprintf("Swing %d.", count)})
	}
}

// OnVoiceCommand 语音命令入口.
// start 仅在 Setup 接受，stop 仅在 Recording 接受，其余忽略不排队.
func (c *Controller) OnVoiceCommand(ctx context.Context, cmd voice.Command) {
	switch cmd {
	case voice.CommandStart:
		c.mu.Lock()
		phase := c.phaseLocked()
		c.mu.Unlock()
		if phase != PhaseSetup {
			c.logger.Debug("start command ignored", zap.String("phase", string(phase)))
			return
		}
		if err := c.StartSession(ctx); err != nil {
			c.logger.Warn("voice start failed", zap.Error(err))
		}
	case voice.CommandStop:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.phaseLocked() != PhaseRecording {
			c.logger.Debug("stop command ignored")
			return
		}
		c.finishLocked(ctx, ReasonStopped, nil)
	default:
		c.logger.Warn("unknown voice command", zap.String("command", string(cmd)))
	}
}

// OnChannelFatal 通道重连用尽后的致命错误入口.
func (c *Controller) OnChannelFatal(ctx context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phaseLocked() != PhaseRecording {
		return
	}
	c.logger.Error("detection channel failed permanently", zap.Error(err))
	c.finishLocked(ctx, ReasonFatal, err)
}

// FinishSession 手动结束会话.
func (c *Controller) FinishSession(ctx context.Context, reason FinishReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phaseLocked() != PhaseRecording {
		return
	}
	c.finishLocked(ctx, reason, nil)
}

// Reset 从 Processing/Error 回到 Setup，销毁当前会话.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phaseLocked() {
	case PhaseProcessing, PhaseError:
		c.session = nil
		return nil
	case PhaseSetup:
		return nil
	default:
		return types.NewError(types.ErrSessionBusy, "cannot reset while recording")
	}
}

// Snapshot 返回当前会话快照；无活动会话时返回 Setup 阶段的零值快照.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{Phase: PhaseSetup}
	}
	return *c.session
}

// onDeadline 截止定时器触发：未达标按超时正常结束.
// 会话 id 守卫防止旧定时器作用于新会话.
func (c *Controller) onDeadline(ctx context.Context, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.ID != sessionID || c.session.Phase != PhaseRecording {
		return
	}
	c.logger.Info("session deadline reached",
		zap.Int("swing_count", c.session.SwingCount),
		zap.Int("target", c.session.TargetSwings))
	c.finishLocked(ctx, ReasonTimeout, nil)
}

// phaseLocked 当前阶段；调用方必须已持锁.
func (c *Controller) phaseLocked() Phase {
	if c.session == nil {
		return PhaseSetup
	}
	return c.session.Phase
}

// finishLocked 结束会话，每个会话恰好执行一次；调用方必须已持锁.
//
// 原子步骤：取消全部在途发送任务 → 停采样器 → 干净关闭通道
// （同时使在途重连定时器失效）→ 撤销截止定时器 → 停语音监听 →
// 迁移到 Processing（completed/timeout/stopped）或 Error（fatal）.
func (c *Controller) finishLocked(ctx context.Context, reason FinishReason, cause error) {
	if c.session == nil || c.session.Phase != PhaseRecording {
		return
	}

	if c.sendCancel != nil {
		c.sendCancel()
	}
	c.sampler.Stop()
	if err := c.link.Close(); err != nil {
		c.logger.Warn("channel close failed", zap.Error(err))
	}
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
	if c.prompter != nil {
		_ = c.prompter.SetListening(false)
	}

	c.session.FinishedAt = c.now()
	c.session.FinishReason = reason
	if reason == ReasonFatal {
		c.session.Phase = PhaseError
		c.session.Err = cause
	} else {
		c.session.Phase = PhaseProcessing
	}

	duration := c.session.FinishedAt.Sub(c.session.StartedAt)
	if c.collector != nil {
		c.collector.RecordSession(string(reason), duration)
	}
	snapshot := *c.session
	if c.recorder != nil {
		go func() {
			if err := c.recorder.Record(context.WithoutCancel(ctx), snapshot); err != nil {
				c.logger.Warn("failed to record session history", zap.Error(err))
			}
		}()
	}
	// 完成的录制交给下游分析服务；Error 阶段没有可用结果
	if c.analysis != nil && c.session.Phase == PhaseProcessing {
		go func() {
			if err := c.analysis.Submit(context.WithoutCancel(ctx), snapshot); err != nil {
				c.logger.Warn("failed to submit recording for analysis", zap.Error(err))
			}
		}()
	}

	c.logger.Info("session finished",
		zap.String("session_id", c.session.ID),
		zap.String("reason", string(reason)),
		zap.Int("swing_count", c.session.SwingCount),
		zap.Duration("duration", duration))
}

// RunVoiceCommands 消费识别器命令流直至 ctx 取消.
func (c *Controller) RunVoiceCommands(ctx context.Context, commands <-chan voice.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			c.OnVoiceCommand(ctx, cmd)
		}
	}
}
