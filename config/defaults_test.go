package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Each sub-config should be non-zero
	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, DetectionConfig{}, cfg.Detection)
	assert.NotEqual(t, SessionConfig{}, cfg.Session)
	assert.NotEqual(t, SpeechConfig{}, cfg.Speech)
	assert.NotEqual(t, HistoryConfig{}, cfg.History)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.InDelta(t, 100, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 200, cfg.RateLimitBurst)
}

func TestDefaultDetectionConfig(t *testing.T) {
	cfg := DefaultDetectionConfig()
	assert.InDelta(t, 1.2, cfg.SubmissionThreshold, 0.001)
	assert.InDelta(t, 5.0, cfg.ContextExpiry, 0.001)
	assert.Equal(t, 2*time.Second, cfg.Cooldown)
	assert.InDelta(t, 0.8, cfg.ConfidenceThreshold, 0.001)
	assert.Equal(t, 300*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 512, cfg.MaxFrameEdge)
	assert.True(t, cfg.Grayscale)
	assert.Equal(t, 70, cfg.JPEGQuality)

	// 窗口必须容得下一次提交
	assert.GreaterOrEqual(t, cfg.ContextExpiry, cfg.SubmissionThreshold)
}

func TestDefaultSessionConfig(t *testing.T) {
	cfg := DefaultSessionConfig()
	assert.Equal(t, 3, cfg.TargetSwings)
	assert.Equal(t, 2*time.Minute, cfg.Deadline)
	assert.Equal(t, time.Second, cfg.ReconnectBaseDelay)
	assert.Equal(t, 5, cfg.ReconnectMaxAttempts)
	assert.NotEmpty(t, cfg.DetectURL)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}
