// =============================================================================
// 🎭 推理后端伪实现
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/fairwaylab/swingsense/detect"
)

// Backend 按预设脚本逐次返回判定结果，脚本耗尽后返回未检出
type Backend struct {
	mu sync.Mutex

	// Results 按调用顺序返回的结果脚本
	Results []detect.Result
	// Err 非 nil 时每次 Evaluate 返回该错误
	Err error

	calls int
	// 每次调用收到的窗口长度
	windowSizes []int
}

// NewBackend 创建伪后端
func NewBackend(results ...detect.Result) *Backend {
	return &Backend{Results: results}
}

func (b *Backend) Name() string { return "mock" }

// Evaluate 返回脚本中的下一个结果
func (b *Backend) Evaluate(ctx context.Context, frames []detect.WindowFrame) (*detect.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.windowSizes = append(b.windowSizes, len(frames))
	idx := b.calls
	b.calls++

	if b.Err != nil {
		return nil, b.Err
	}
	if idx < len(b.Results) {
		r := b.Results[idx]
		return &r, nil
	}
	return &detect.Result{SwingDetected: false, Confidence: 0}, nil
}

// Calls 返回 Evaluate 被调用的次数
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// WindowSizes 返回每次调用收到的窗口帧数
func (b *Backend) WindowSizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.windowSizes...)
}
