package session

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/internal/metrics"
	"github.com/fairwaylab/swingsense/media"
	"github.com/fairwaylab/swingsense/protocol"
	"github.com/fairwaylab/swingsense/types"
)

// ===== 🔌 检测通道（客户端） =====

// ConnState 客户端连接状态.
type ConnState string

const (
	ConnDisconnected      ConnState = "disconnected"
	ConnConnecting        ConnState = "connecting"
	ConnConnected         ConnState = "connected"
	ConnReconnecting      ConnState = "reconnecting"
	ConnFailedPermanently ConnState = "failed_permanently"
)

// DetectionResult 一次挥杆评估结果.
type DetectionResult struct {
	SwingDetected bool
	Confidence    float64
	Timestamp     float64
}

// WireConn 底层检测连接（WebSocket 等）.
type WireConn interface {
	// ReadEvent 读取一条服务端事件（阻塞直到有数据或出错）
	ReadEvent(ctx context.Context) (*protocol.EventMessage, error)
	// WriteFrame 发送一条帧消息
	WriteFrame(ctx context.Context, msg protocol.FrameMessage) error
	// Close 关闭连接
	Close() error
}

// DialFunc 连接工厂，用于建连与重连.
type DialFunc func(ctx context.Context) (WireConn, error)

// wsConn 基于 coder/websocket 的 WireConn 实现.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadEvent(ctx context.Context) (*protocol.EventMessage, error) {
	var ev protocol.EventMessage
	if err := wsjson.Read(ctx, w.conn, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (w *wsConn) WriteFrame(ctx context.Context, msg protocol.FrameMessage) error {
	return wsjson.Write(ctx, w.conn, msg)
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "session finished")
}

// DialDetect 返回连接到检测服务器的 DialFunc.
func DialDetect(url string) DialFunc {
	return func(ctx context.Context) (WireConn, error) {
		c, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		c.SetReadLimit(1 << 20)
		return &wsConn{conn: c}, nil
	}
}

// ChannelConfig 配置检测通道.
type ChannelConfig struct {
	// ReconnectBaseDelay 第 n 次重连等待 base × 2^n
	ReconnectBaseDelay time.Duration
	// ReconnectMaxAttempts 用尽后停止重试并上报致命错误
	ReconnectMaxAttempts int
	// ConfidenceThreshold 低于该值的评估结果不上抛
	ConfidenceThreshold float64
	// Frame 外发帧预处理配置
	Frame media.FrameConfig
}

// ChannelHooks 通道向会话上抛的事件回调.
type ChannelHooks struct {
	// OnDetection 高于置信度阈值的检出事件
	OnDetection func(DetectionResult)
	// OnStateChange 连接状态变化（含当前重连次数）
	OnStateChange func(state ConnState, attempt int)
	// OnFatal 重连次数用尽后的致命错误
	OnFatal func(error)
}

// DetectionChannel 持有到检测服务器的唯一活动连接.
//
// 发送失败立即报错、绝不排队重试；非应用主动关闭的断开
// 按 base × 2^attempt 指数退避重连，成功后计数归零，
// 用尽 MaxAttempts 后进入 FailedPermanently 并上报致命错误.
type DetectionChannel struct {
	config    ChannelConfig
	dial      DialFunc
	hooks     ChannelHooks
	collector *metrics.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	state   ConnState
	conn    WireConn
	attempt int
	gen     uint64
	closed  bool
	done    chan struct{}
}

// NewDetectionChannel 创建检测通道.
func NewDetectionChannel(config ChannelConfig, dial DialFunc, hooks ChannelHooks, collector *metrics.Collector, logger *zap.Logger) *DetectionChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ReconnectBaseDelay <= 0 {
		config.ReconnectBaseDelay = time.Second
	}
	if config.ReconnectMaxAttempts <= 0 {
		config.ReconnectMaxAttempts = 5
	}
	return &DetectionChannel{
		config:    config,
		dial:      dial,
		hooks:     hooks,
		collector: collector,
		logger:    logger.With(zap.String("component", "detection_channel")),
		state:     ConnDisconnected,
		done:      make(chan struct{}),
	}
}

// backoffDelay 第 attempt 次（从 0 起）重连前的等待时长.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<uint(attempt))
}

// Connect 建立连接；已在 Connecting/Connected 时为幂等空操作.
// 建连失败走与断线相同的退避重连路径，不直接报错.
func (c *DetectionChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.NewError(types.ErrConnectionFailure, "channel closed")
	}
	switch c.state {
	case ConnConnecting, ConnConnected, ConnReconnecting:
		c.mu.Unlock()
		return nil
	case ConnFailedPermanently:
		c.mu.Unlock()
		return types.NewError(types.ErrConnectionFailure, "reconnect attempts exhausted")
	}
	c.setStateLocked(ConnConnecting)
	gen := c.gen
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.logger.Warn("initial connect failed", zap.Error(err))
		c.scheduleReconnect(ctx, gen)
		return nil
	}
	c.install(ctx, conn, gen)
	return nil
}

// Send 预处理并发送一帧.
// 未处于 Connected 时立即失败，帧不排队、不补发.
func (c *DetectionChannel) Send(ctx context.Context, frame types.Frame) error {
	c.mu.Lock()
	if c.state != ConnConnected || c.conn == nil {
		c.mu.Unlock()
		return types.NewError(types.ErrConnectionFailure, "not connected, frame dropped").WithRetryable(true)
	}
	conn := c.conn
	gen := c.gen
	c.mu.Unlock()

	prepared, err := media.PrepareFrame(frame.Image, c.config.Frame)
	if err != nil {
		return types.NewError(types.ErrProtocolError, "frame preprocessing failed").WithCause(err)
	}

	msg := protocol.FrameMessage{
		Timestamp:   frame.Timestamp,
		ImageBase64: prepared.Base64,
	}
	if err := conn.WriteFrame(ctx, msg); err != nil {
		c.logger.Warn("frame send failed", zap.Float64("timestamp", frame.Timestamp), zap.Error(err))
		c.scheduleReconnect(ctx, gen)
		return types.NewError(types.ErrConnectionFailure, "frame send failed").WithCause(err).WithRetryable(true)
	}
	return nil
}

// State 返回当前连接状态与重连次数.
func (c *DetectionChannel) State() (ConnState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempt
}

// Close 应用主动干净关闭：停止接收循环，使在途重连定时器失效，不再重连.
func (c *DetectionChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	conn := c.conn
	c.conn = nil
	c.setStateLocked(ConnDisconnected)
	close(c.done)
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// install 安装新连接：重连计数归零，启动接收循环.
func (c *DetectionChannel) install(ctx context.Context, conn WireConn, gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	reconnected := c.attempt > 0
	c.attempt = 0
	c.setStateLocked(ConnConnected)
	c.mu.Unlock()

	if reconnected && c.collector != nil {
		c.collector.RecordReconnect()
	}
	c.logger.Info("detection channel connected")

	go c.receiveLoop(ctx, conn, gen)
}

// receiveLoop 自续接收循环：处理完当前消息立即等待下一条，直到连接关闭.
func (c *DetectionChannel) receiveLoop(ctx context.Context, conn WireConn, gen uint64) {
	for {
		ev, err := conn.ReadEvent(ctx)
		if err != nil {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				return
			default:
			}
			c.logger.Warn("connection read error", zap.Error(err))
			c.scheduleReconnect(ctx, gen)
			return
		}
		c.dispatch(ev)
	}
}

// dispatch 按 status 分发服务端事件.
func (c *DetectionChannel) dispatch(ev *protocol.EventMessage) {
	switch ev.Status {
	case protocol.StatusEvaluated:
		if ev.SwingDetected == nil || ev.Confidence == nil {
			c.logger.Warn("evaluated event missing fields")
			return
		}
		result := DetectionResult{
			SwingDetected: *ev.SwingDetected,
			Confidence:    *ev.Confidence,
		}
		if ev.Timestamp != nil {
			result.Timestamp = *ev.Timestamp
		}
		if !result.SwingDetected || result.Confidence < c.config.ConfidenceThreshold {
			c.logger.Debug("evaluation below threshold",
				zap.Bool("swing_detected", result.SwingDetected),
				zap.Float64("confidence", result.Confidence))
			return
		}
		if c.hooks.OnDetection != nil {
			c.hooks.OnDetection(result)
		}
	case protocol.StatusCooldown:
		c.logger.Debug("server in cooldown")
	case protocol.StatusAwaitingMoreData:
		c.logger.Debug("server awaiting more data")
	case protocol.StatusError:
		// 非致命：连接保持打开
		c.logger.Warn("server reported error", zap.String("error", ev.Error))
	default:
		c.logger.Warn("unknown event status", zap.String("status", string(ev.Status)))
	}
}

// scheduleReconnect 指数退避调度一次重连.
// gen 不匹配说明连接已被替换或通道已关闭，本次调度作废.
func (c *DetectionChannel) scheduleReconnect(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.attempt >= c.config.ReconnectMaxAttempts {
		c.setStateLocked(ConnFailedPermanently)
		c.mu.Unlock()
		c.logger.Error("max reconnect attempts reached",
			zap.Int("attempts", c.config.ReconnectMaxAttempts))
		if c.hooks.OnFatal != nil {
			c.hooks.OnFatal(types.NewError(types.ErrConnectionFailure, "reconnect attempts exhausted"))
		}
		return
	}
	delay := backoffDelay(c.config.ReconnectBaseDelay, c.attempt)
	c.attempt++
	attempt := c.attempt
	c.gen++
	nextGen := c.gen
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setStateLocked(ConnReconnecting)
	c.mu.Unlock()

	c.logger.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay))

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-time.After(delay):
		}

		c.mu.Lock()
		if c.closed || c.gen != nextGen {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(ConnConnecting)
		c.mu.Unlock()

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
			c.scheduleReconnect(ctx, nextGen)
			return
		}
		c.install(ctx, conn, nextGen)
	}()
}

// setStateLocked 更新状态并通知回调；调用方必须已持锁.
func (c *DetectionChannel) setStateLocked(state ConnState) {
	if c.state == state {
		return
	}
	c.state = state
	if c.hooks.OnStateChange != nil {
		attempt := c.attempt
		go c.hooks.OnStateChange(state, attempt)
	}
}
