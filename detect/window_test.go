package detect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func frameAt(ts float64) WindowFrame {
	return WindowFrame{Timestamp: ts, Image: fmt.Sprintf("frame-%v", ts)}
}

func TestContextWindow_AppendAndSpan(t *testing.T) {
	t.Parallel()

	w := NewContextWindow(5.0)
	assert.Equal(t, 0.0, w.Span())

	w.Append(frameAt(0.0))
	assert.Equal(t, 0.0, w.Span())

	w.Append(frameAt(0.3))
	w.Append(frameAt(1.3))
	assert.Equal(t, 3, w.Len())
	assert.InDelta(t, 1.3, w.Span(), 1e-9)
}

func TestContextWindow_EvictsExpiredFromFront(t *testing.T) {
	t.Parallel()

	// Scenario B: expiry=5，比最新帧早 5 秒以上的帧在下一次追加时被淘汰
	w := NewContextWindow(5.0)
	w.Append(frameAt(0.0))
	w.Append(frameAt(1.0))
	w.Append(frameAt(2.0))

	evicted := w.Append(frameAt(6.5))
	assert.Equal(t, 2, evicted) // 0.0 与 1.0 被淘汰
	assert.Equal(t, 2, w.Len())
	assert.InDelta(t, 4.5, w.Span(), 1e-9)
}

func TestContextWindow_SnapshotMarksNewestHighDetail(t *testing.T) {
	t.Parallel()

	w := NewContextWindow(5.0)
	w.Append(frameAt(0.0))
	w.Append(frameAt(0.5))
	w.Append(frameAt(1.0))

	frames := w.Snapshot()
	assert.Len(t, frames, 3)
	assert.False(t, frames[0].HighDetail)
	assert.False(t, frames[1].HighDetail)
	assert.True(t, frames[2].HighDetail)

	// Snapshot 是副本，修改不影响窗口
	frames[0].Timestamp = 99
	assert.InDelta(t, 1.0, w.Span(), 1e-9)
}

func TestContextWindow_Clear(t *testing.T) {
	t.Parallel()

	w := NewContextWindow(5.0)
	w.Append(frameAt(0.0))
	w.Append(frameAt(1.0))
	w.Clear()

	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0.0, w.Span())
}

// 不变量：任何追加序列之后，newest − oldest ≤ expiry。
func TestContextWindow_SpanInvariant(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		expiry := rapid.Float64Range(0.5, 10).Draw(t, "expiry")
		w := NewContextWindow(expiry)

		ts := 0.0
		n := rapid.IntRange(1, 200).Draw(t, "frames")
		for i := 0; i < n; i++ {
			ts += rapid.Float64Range(0, 2).Draw(t, "step")
			w.Append(frameAt(ts))

			if w.Span() > expiry {
				t.Fatalf("span %f exceeds expiry %f after frame %d", w.Span(), expiry, i)
			}
		}
	})
}
