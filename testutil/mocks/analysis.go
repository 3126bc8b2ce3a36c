// =============================================================================
// 🎭 分析提交器伪实现
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/fairwaylab/swingsense/session"
)

// AnalysisSubmitter 记录提交的会话快照；零值即为可用的 no-op 实现
type AnalysisSubmitter struct {
	mu sync.Mutex

	// Err 非 nil 时每次 Submit 返回该错误
	Err error

	submitted []session.Session
}

// NewAnalysisSubmitter 创建伪提交器
func NewAnalysisSubmitter() *AnalysisSubmitter {
	return &AnalysisSubmitter{}
}

// Submit 记录快照
func (a *AnalysisSubmitter) Submit(ctx context.Context, s session.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitted = append(a.submitted, s)
	return a.Err
}

// Submitted 返回按提交顺序记录的会话快照
func (a *AnalysisSubmitter) Submitted() []session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]session.Session(nil), a.submitted...)
}
