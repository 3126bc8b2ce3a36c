package voice_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fairwaylab/swingsense/testutil"
	"github.com/fairwaylab/swingsense/testutil/mocks"
	"github.com/fairwaylab/swingsense/voice"
)

// 播放期间暂停识别、播放后恢复的完整序列
func TestSequencerWithMockSpeechStack(t *testing.T) {
	ctx := testutil.TestContext(t)
	synth := mocks.NewSynthesizer()
	rec := mocks.NewRecognizer()

	seq := voice.NewSequencer(voice.DefaultSequencerConfig(), synth, rec, nil, zaptest.NewLogger(t))
	seq.Start(ctx)
	defer seq.Close()

	require.NoError(t, seq.SetListening(true))
	require.NoError(t, seq.Enqueue(voice.Prompt{Text: "Recording started. Go ahead and swing."}))
	require.NoError(t, seq.Enqueue(voice.Prompt{Text: "Swing 1."}))

	testutil.AssertEventuallyTrue(t, func() bool {
		return len(synth.Spoken()) == 2
	}, 2*time.Second)

	assert.Equal(t, []string{"Recording started. Go ahead and swing.", "Swing 1."}, synth.Spoken())

	// 每条提示前 stop、后 start，首次 SetListening 也 start 一次
	testutil.AssertEventuallyTrue(t, func() bool {
		calls := rec.Calls()
		return len(calls) >= 5 && calls[len(calls)-1] == "start"
	}, 2*time.Second)
}

// 识别器命令经 Commands 透传
func TestSequencerForwardsRecognizerCommands(t *testing.T) {
	ctx := testutil.TestContext(t)
	rec := mocks.NewRecognizer()
	seq := voice.NewSequencer(voice.DefaultSequencerConfig(), mocks.NewSynthesizer(), rec, nil, zaptest.NewLogger(t))
	seq.Start(ctx)
	defer seq.Close()

	rec.Emit(voice.CommandStop)

	cmd, ok := testutil.WaitForChannel(seq.Commands(), time.Second)
	require.True(t, ok)
	assert.Equal(t, voice.CommandStop, cmd)
}
