package detect

// ContextWindow 单连接的滚动时间窗帧缓冲。
//
// 不变量：任何一次变更之后，newest.Timestamp − oldest.Timestamp ≤ expiry。
// 淘汰是惰性的：仅在 Append 时从队首剔除过期帧，无后台清扫。
type ContextWindow struct {
	frames []WindowFrame
	expiry float64
}

// WindowFrame 窗口内的一帧。
type WindowFrame struct {
	// Timestamp 会话相对捕获时间（秒）
	Timestamp float64
	// Image base64 编码的图像负载
	Image string
	// HighDetail 提交推理时标记：最新帧高细节，其余低细节
	HighDetail bool
}

// NewContextWindow 创建一个时间跨度上限为 expiry 秒的窗口。
func NewContextWindow(expiry float64) *ContextWindow {
	return &ContextWindow{expiry: expiry}
}

// Append 追加一帧并从队首淘汰过期帧。
// 返回被淘汰的帧数。
func (w *ContextWindow) Append(f WindowFrame) int {
	w.frames = append(w.frames, f)

	newest := w.frames[len(w.frames)-1].Timestamp
	evicted := 0
	for len(w.frames) > 0 && newest-w.frames[0].Timestamp > w.expiry {
		w.frames = w.frames[1:]
		evicted++
	}
	return evicted
}

// Span 返回窗口当前覆盖的时间跨度（秒）。空窗口为 0。
func (w *ContextWindow) Span() float64 {
	if len(w.frames) < 2 {
		return 0
	}
	return w.frames[len(w.frames)-1].Timestamp - w.frames[0].Timestamp
}

// Len 返回窗口内帧数。
func (w *ContextWindow) Len() int {
	return len(w.frames)
}

// Snapshot 返回按时间排序的帧序列副本，最新一帧标记为高细节。
func (w *ContextWindow) Snapshot() []WindowFrame {
	out := make([]WindowFrame, len(w.frames))
	copy(out, w.frames)
	for i := range out {
		out[i].HighDetail = i == len(out)-1
	}
	return out
}

// Clear 清空窗口。检出一次挥杆后调用，下一次挥杆从空缓冲开始。
func (w *ContextWindow) Clear() {
	w.frames = w.frames[:0]
}
