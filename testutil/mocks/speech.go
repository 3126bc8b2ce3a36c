// =============================================================================
// 🎭 语音接口伪实现
// =============================================================================
// 供 voice 与 session 测试注入的可脚本化合成器与识别器
// =============================================================================
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/fairwaylab/swingsense/voice"
)

// Synthesizer 记录每次播放的文本，可配置延迟与错误
type Synthesizer struct {
	mu sync.Mutex

	// Delay 每次 Speak 的模拟播放时长
	Delay time.Duration
	// Err 非 nil 时每次 Speak 返回该错误
	Err error

	spoken []string
}

// NewSynthesizer 创建伪合成器
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

func (s *Synthesizer) Name() string { return "mock" }

// Speak 记录文本并模拟播放；ctx 取消时提前返回
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Err
}

// Spoken 返回按播放顺序记录的文本
func (s *Synthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

// Recognizer 记录 Start/Stop 调用序列，命令由测试通过 Emit 注入
type Recognizer struct {
	mu sync.Mutex

	calls    []string
	commands chan voice.Command
}

// NewRecognizer 创建伪识别器
func NewRecognizer() *Recognizer {
	return &Recognizer{commands: make(chan voice.Command, 8)}
}

func (r *Recognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "start")
	return nil
}

func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "stop")
	return nil
}

func (r *Recognizer) Commands() <-chan voice.Command {
	return r.commands
}

// Emit 模拟识别到一条语音命令
func (r *Recognizer) Emit(cmd voice.Command) {
	r.commands <- cmd
}

// Calls 返回 Start/Stop 的调用序列
func (r *Recognizer) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
