package detect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fairwaylab/swingsense/config"
	"github.com/fairwaylab/swingsense/detect"
	"github.com/fairwaylab/swingsense/protocol"
	"github.com/fairwaylab/swingsense/testutil"
	"github.com/fairwaylab/swingsense/testutil/fixtures"
	"github.com/fairwaylab/swingsense/testutil/mocks"
)

func integrationConfig() config.DetectionConfig {
	cfg := config.DefaultDetectionConfig()
	cfg.SubmissionThreshold = 1.0
	cfg.ContextExpiry = 5.0
	cfg.Cooldown = 2 * time.Second
	return cfg
}

// 一次完整的帧流：等待 → 评估未检出 → 评估检出 → 冷却
func TestEngineFullSwingCycle(t *testing.T) {
	ctx := testutil.TestContext(t)
	backend := mocks.NewBackend(
		detect.Result{SwingDetected: false, Confidence: 0.2},
		detect.Result{SwingDetected: true, Confidence: 0.93},
	)
	engine := detect.NewEngine(integrationConfig(), backend, nil, zaptest.NewLogger(t))

	// 跨度不足阈值，只缓冲
	ev := engine.HandleFrame(ctx, []byte(testutil.MustJSON(fixtures.FrameMessage(0.0))))
	require.Equal(t, protocol.StatusAwaitingMoreData, ev.Status)

	// 达到阈值后评估，第一次未检出，窗口保留
	ev = engine.HandleFrame(ctx, []byte(testutil.MustJSON(fixtures.FrameMessage(1.1))))
	require.Equal(t, protocol.StatusEvaluated, ev.Status)
	require.NotNil(t, ev.SwingDetected)
	assert.False(t, *ev.SwingDetected)
	assert.Positive(t, engine.WindowLen())

	// 第二次检出，进入冷却并清空窗口
	ev = engine.HandleFrame(ctx, []byte(testutil.MustJSON(fixtures.FrameMessage(1.5))))
	require.Equal(t, protocol.StatusEvaluated, ev.Status)
	require.NotNil(t, ev.SwingDetected)
	assert.True(t, *ev.SwingDetected)
	assert.InDelta(t, 0.93, *ev.Confidence, 1e-9)
	assert.True(t, engine.InCooldown())

	// 冷却期内照常缓冲但不评估
	ev = engine.HandleFrame(ctx, []byte(testutil.MustJSON(fixtures.FrameMessage(1.8))))
	assert.Equal(t, protocol.StatusCooldown, ev.Status)
	assert.Equal(t, 2, backend.Calls())
}

// 后端每次收到的窗口应随缓冲增长
func TestEngineWindowGrowsAcrossEvaluations(t *testing.T) {
	ctx := testutil.TestContext(t)
	backend := mocks.NewBackend() // 脚本为空，始终未检出
	engine := detect.NewEngine(integrationConfig(), backend, nil, zaptest.NewLogger(t))

	for _, ts := range []float64{0.0, 1.2, 1.6, 2.0} {
		engine.HandleFrame(ctx, []byte(testutil.MustJSON(fixtures.FrameMessage(ts))))
	}

	sizes := backend.WindowSizes()
	require.Len(t, sizes, 3)
	assert.Equal(t, []int{2, 3, 4}, sizes)
}
