package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fairwaylab/swingsense/session"
	"github.com/fairwaylab/swingsense/testutil"
	"github.com/fairwaylab/swingsense/testutil/mocks"
	"github.com/fairwaylab/swingsense/types"
	"github.com/fairwaylab/swingsense/voice"
)

type stubLink struct{}

func (stubLink) Connect(ctx context.Context) error                 { return nil }
func (stubLink) Send(ctx context.Context, frame types.Frame) error { return nil }
func (stubLink) Close() error                                      { return nil }

type stubPrompter struct {
	mu sync.Mutex
}

func (p *stubPrompter) Enqueue(pr voice.Prompt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pr.OnDone != nil {
		pr.OnDone()
	}
	return nil
}

func (p *stubPrompter) SetListening(enabled bool) error { return nil }

// 完成的会话异步提交给下游分析服务
func TestCompletedSessionSubmittedForAnalysis(t *testing.T) {
	ctx := testutil.TestContext(t)
	analysis := mocks.NewAnalysisSubmitter()

	ctrl := session.NewController(
		session.ControllerConfig{TargetSwings: 2, Deadline: time.Minute, ConfidenceThreshold: 0.8},
		session.NewFrameSampler(0),
		stubLink{},
		&stubPrompter{},
		nil, nil,
		zaptest.NewLogger(t),
	).WithAnalysis(analysis)

	require.NoError(t, ctrl.StartSession(ctx))
	ctrl.OnDetectionEvent(ctx, session.DetectionResult{SwingDetected: true, Confidence: 0.9, Timestamp: 1.0})
	ctrl.OnDetectionEvent(ctx, session.DetectionResult{SwingDetected: true, Confidence: 0.95, Timestamp: 2.0})

	require.Equal(t, session.PhaseProcessing, ctrl.Snapshot().Phase)

	testutil.AssertEventuallyTrue(t, func() bool {
		return len(analysis.Submitted()) == 1
	}, 2*time.Second)

	snap := analysis.Submitted()[0]
	assert.Equal(t, 2, snap.SwingCount)
	assert.Equal(t, session.ReasonCompleted, snap.FinishReason)
}

// 语音停止的会话同样提交分析（正常结束）
func TestStoppedSessionSubmittedForAnalysis(t *testing.T) {
	ctx := testutil.TestContext(t)
	analysis := mocks.NewAnalysisSubmitter()

	ctrl := session.NewController(
		session.ControllerConfig{TargetSwings: 3, Deadline: time.Minute, ConfidenceThreshold: 0.8},
		session.NewFrameSampler(0),
		stubLink{},
		&stubPrompter{},
		nil, nil,
		zaptest.NewLogger(t),
	).WithAnalysis(analysis)

	require.NoError(t, ctrl.StartSession(ctx))
	ctrl.OnVoiceCommand(ctx, voice.CommandStop)

	testutil.AssertEventuallyTrue(t, func() bool {
		return len(analysis.Submitted()) == 1
	}, 2*time.Second)
	assert.Equal(t, session.ReasonStopped, analysis.Submitted()[0].FinishReason)
}
