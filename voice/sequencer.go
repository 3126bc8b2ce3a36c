// 软件包 voice 提供语音提示排队与语音命令监听的协调.
package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/internal/metrics"
)

// Command 语音命令事件.
type Command string

const (
	// CommandStart 用户口头请求开始录制
	CommandStart Command = "start"
	// CommandStop 用户口头请求停止录制
	CommandStop Command = "stop"
)

// Synthesizer 语音合成服务契约.
// Speak 在播放完成（或 ctx 取消）后返回.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Name() string
}

// Recognizer 语音命令识别器契约.
// Start/Stop 可重复调用；Commands 向唯一订阅者发送离散命令事件.
type Recognizer interface {
	Start() error
	Stop() error
	Commands() <-chan Command
}

// Prompt 一条待播放的语音提示.
type Prompt struct {
	Text string
	// OnDone 播放完成后回调（可选），在播放协程上执行
	OnDone func()
}

// SequencerConfig 配置提示序列器.
type SequencerConfig struct {
	// QueueSize 待播放提示的缓冲上限
	QueueSize int
	// PlaybackTimeout 单条提示播放超时
	PlaybackTimeout time.Duration
}

// DefaultSequencerConfig 返回默认配置.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		QueueSize:       16,
		PlaybackTimeout: 10 * time.Second,
	}
}

// Sequencer 严格 FIFO 的语音提示序列器.
//
// 同一时刻至多播放一条提示；播放期间暂停语音命令监听，
// 并且仅在播放完成回调时恢复一次，绝不提前恢复——
// 避免识别器听到设备自己的提示而误触发开始/停止命令.
type Sequencer struct {
	config     SequencerConfig
	synth      Synthesizer
	recognizer Recognizer
	collector  *metrics.Collector
	logger     *zap.Logger

	queue chan Prompt
	done  chan struct{}

	mu            sync.Mutex
	listenDesired bool
	playing       bool
	started       bool
}

// NewSequencer 创建提示序列器.
func NewSequencer(config SequencerConfig, synth Synthesizer, recognizer Recognizer, collector *metrics.Collector, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultSequencerConfig().QueueSize
	}
	if config.PlaybackTimeout <= 0 {
		config.PlaybackTimeout = DefaultSequencerConfig().PlaybackTimeout
	}
	return &Sequencer{
		config:     config,
		synth:      synth,
		recognizer: recognizer,
		collector:  collector,
		logger:     logger.With(zap.String("component", "voice_sequencer")),
		queue:      make(chan Prompt, config.QueueSize),
		done:       make(chan struct{}),
	}
}

// Start 启动播放协程.
func (s *Sequencer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
}

// Enqueue 将一条提示加入队尾.
// 队列满时丢弃并返回错误，提示不会乱序或并发播放.
func (s *Sequencer) Enqueue(p Prompt) error {
	select {
	case <-s.done:
		return fmt.Errorf("sequencer closed")
	default:
	}

	select {
	case s.queue <- p:
		return nil
	default:
		return fmt.Errorf("prompt queue full, dropping %q", p.Text)
	}
}

// SetListening 设置期望的监听状态.
// 播放期间的恢复由播放完成回调统一执行.
func (s *Sequencer) SetListening(enabled bool) error {
	s.mu.Lock()
	s.listenDesired = enabled
	playing := s.playing
	s.mu.Unlock()

	if playing {
		// 正在播放：实际状态由播放完成时恢复
		return nil
	}
	if enabled {
		return s.recognizer.Start()
	}
	return s.recognizer.Stop()
}

// Commands 返回识别器的命令通道.
func (s *Sequencer) Commands() <-chan Command {
	return s.recognizer.Commands()
}

// Close 停止序列器，未播放的提示被丢弃.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
}

// run 播放循环：严格按入队顺序逐条播放.
func (s *Sequencer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case p := <-s.queue:
			s.play(ctx, p)
		}
	}
}

// play 播放一条提示：暂停监听 → 播放 → 恢复监听（恰好一次）→ 回调.
func (s *Sequencer) play(ctx context.Context, p Prompt) {
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()

	if err := s.recognizer.Stop(); err != nil {
		s.logger.Warn("failed to suspend recognizer", zap.Error(err))
	}

	playCtx, cancel := context.WithTimeout(ctx, s.config.PlaybackTimeout)
	err := s.synth.Speak(playCtx, p.Text)
	cancel()
	if err != nil {
		s.logger.Warn("prompt playback failed", zap.String("text", p.Text), zap.Error(err))
	} else if s.collector != nil {
		s.collector.RecordPromptPlayed()
	}

	// 播放完成：按期望状态恢复监听，恰好一次
	s.mu.Lock()
	s.playing = false
	resume := s.listenDesired
	s.mu.Unlock()

	if resume {
		if err := s.recognizer.Start(); err != nil {
			s.logger.Warn("failed to resume recognizer", zap.Error(err))
		}
	}

	if p.OnDone != nil {
		p.OnDone()
	}
}
