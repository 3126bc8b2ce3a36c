package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fairwaylab/swingsense/types"
)

// ===== 🎞️ 帧采样器 =====

// FrameSampler 将相机原生帧率节流到固定的采样间隔.
//
// 每个间隔内至多放行一帧，多余的帧直接丢弃、绝不排队——
// 检测节奏与拍摄节奏解耦，外发网络负载与相机帧率无关.
type FrameSampler struct {
	interval time.Duration
	limiter  *rate.Limiter
	mu       sync.Mutex
	running  bool
	now      func() time.Time
}

// NewFrameSampler 创建帧采样器.
func NewFrameSampler(interval time.Duration) *FrameSampler {
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	return &FrameSampler{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		now:      time.Now,
	}
}

// Start 开始放行帧，并重置采样窗口.
func (s *FrameSampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.limiter = rate.NewLimiter(rate.Every(s.interval), 1)
}

// Stop 停止放行帧.
func (s *FrameSampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Offer 提交一帧；返回是否放行.
// 到达间隔之前的帧被丢弃，不缓冲、不补发.
func (s *FrameSampler) Offer(f types.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	return s.limiter.AllowN(s.now(), 1)
}

// Interval 返回采样间隔.
func (s *FrameSampler) Interval() time.Duration {
	return s.interval
}
