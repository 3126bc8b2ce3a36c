package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylab/swingsense/config"
	"github.com/fairwaylab/swingsense/protocol"
)

// stubBackend 可编程的推理后端。
type stubBackend struct {
	result *Result
	err    error
	calls  int
	seen   [][]WindowFrame
}

func (b *stubBackend) Evaluate(_ context.Context, frames []WindowFrame) (*Result, error) {
	b.calls++
	b.seen = append(b.seen, frames)
	if b.err != nil {
		return nil, b.err
	}
	return b.result, nil
}

func (b *stubBackend) Name() string { return "stub" }

func testDetectionConfig() config.DetectionConfig {
	cfg := config.DefaultDetectionConfig()
	cfg.SubmissionThreshold = 1.2
	cfg.ContextExpiry = 5.0
	cfg.Cooldown = 2 * time.Second
	return cfg
}

// newTestEngine 返回使用假时钟的 Engine。
func newTestEngine(backend Backend) (*Engine, *time.Time) {
	engine := NewEngine(testDetectionConfig(), backend, nil, nil)
	now := time.Unix(1000, 0)
	engine.now = func() time.Time { return now }
	return engine, &now
}

func rawFrame(ts float64) []byte {
	return []byte(fmt.Sprintf(`{"timestamp": %v, "image_base64": "aW1n"}`, ts))
}

func TestEngine_AwaitsMoreDataBelowThreshold(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{result: &Result{}}
	engine, _ := newTestEngine(backend)

	event := engine.HandleFrame(context.Background(), rawFrame(0.0))
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)

	event = engine.HandleFrame(context.Background(), rawFrame(0.5))
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)
	require.NotNil(t, event.ContextWindow)
	assert.InDelta(t, 0.5, *event.ContextWindow, 1e-9)
	require.NotNil(t, event.ContextSize)
	assert.Equal(t, 2, *event.ContextSize)

	assert.Equal(t, 0, backend.calls)
}

func TestEngine_DetectionEntersCooldownAndClearsWindow(t *testing.T) {
	t.Parallel()

	// Scenario A: 3 帧跨度 1.3s，后端返回置信度 0.9 的检出
	backend := &stubBackend{result: &Result{SwingDetected: true, Confidence: 0.9}}
	engine, _ := newTestEngine(backend)

	engine.HandleFrame(context.Background(), rawFrame(0.0))
	engine.HandleFrame(context.Background(), rawFrame(0.6))
	event := engine.HandleFrame(context.Background(), rawFrame(1.3))

	require.Equal(t, protocol.StatusEvaluated, event.Status)
	require.NotNil(t, event.SwingDetected)
	assert.True(t, *event.SwingDetected)
	assert.InDelta(t, 0.9, *event.Confidence, 1e-9)

	assert.Equal(t, 1, backend.calls)
	assert.True(t, engine.InCooldown())
	assert.Equal(t, 0, engine.WindowLen())

	// 提交序列：最新帧高细节，其余低细节
	submitted := backend.seen[0]
	require.Len(t, submitted, 3)
	assert.False(t, submitted[0].HighDetail)
	assert.True(t, submitted[2].HighDetail)
}

func TestEngine_CooldownBuffersWithoutEvaluating(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{result: &Result{SwingDetected: true, Confidence: 0.95}}
	engine, now := newTestEngine(backend)

	engine.HandleFrame(context.Background(), rawFrame(0.0))
	engine.HandleFrame(context.Background(), rawFrame(1.3))
	require.Equal(t, 1, backend.calls)
	require.True(t, engine.InCooldown())

	// 冷却期内的帧：缓冲但不评估
	event := engine.HandleFrame(context.Background(), rawFrame(1.6))
	assert.Equal(t, protocol.StatusCooldown, event.Status)
	require.NotNil(t, event.CooldownRemaining)
	assert.Greater(t, *event.CooldownRemaining, 0.0)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, 1, engine.WindowLen())

	// 冷却结束后恢复评估
	*now = now.Add(3 * time.Second)
	assert.False(t, engine.InCooldown())
	event = engine.HandleFrame(context.Background(), rawFrame(3.0))
	assert.Equal(t, protocol.StatusEvaluated, event.Status)
	assert.Equal(t, 2, backend.calls)
}

func TestEngine_NotDetectedRetainsWindow(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{result: &Result{SwingDetected: false, Confidence: 0.3}}
	engine, _ := newTestEngine(backend)

	engine.HandleFrame(context.Background(), rawFrame(0.0))
	event := engine.HandleFrame(context.Background(), rawFrame(1.5))

	require.Equal(t, protocol.StatusEvaluated, event.Status)
	assert.False(t, *event.SwingDetected)
	assert.False(t, engine.InCooldown())
	// 未检出时窗口保留，供下一次评估
	assert.Equal(t, 2, engine.WindowLen())
}

func TestEngine_BackendFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{err: errors.New("model unavailable")}
	engine, _ := newTestEngine(backend)

	engine.HandleFrame(context.Background(), rawFrame(0.0))
	event := engine.HandleFrame(context.Background(), rawFrame(1.5))

	assert.Equal(t, protocol.StatusError, event.Status)
	assert.NotEmpty(t, event.Error)
	// 窗口在错误后存活
	assert.Equal(t, 2, engine.WindowLen())
}

func TestEngine_MalformedMessageIsNonFatal(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{result: &Result{}}
	engine, _ := newTestEngine(backend)

	event := engine.HandleFrame(context.Background(), []byte(`{"timestamp": -1}`))
	assert.Equal(t, protocol.StatusError, event.Status)

	// 格式错误不影响后续帧
	event = engine.HandleFrame(context.Background(), rawFrame(0.0))
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)
}

func TestEngine_EventMessagesAreWireCompatible(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{result: &Result{SwingDetected: true, Confidence: 0.88}}
	engine, _ := newTestEngine(backend)

	engine.HandleFrame(context.Background(), rawFrame(0.0))
	event := engine.HandleFrame(context.Background(), rawFrame(1.3))

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"status":"evaluated","swing_detected":true,"confidence":0.88,"timestamp":1.3}`,
		string(data))
}
