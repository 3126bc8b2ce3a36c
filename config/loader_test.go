// 配置加载器与校验测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 3, cfg.Session.TargetSwings)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s

detection:
  submission_threshold: 1.5
  context_expiry: 6.0
  cooldown: 3s
  confidence_threshold: 0.75
  frame_interval: 250ms

session:
  target_swings: 5
  deadline: 90s
  reconnect_base_delay: 500ms
  reconnect_max_attempts: 4

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, 1.5, cfg.Detection.SubmissionThreshold)
	assert.Equal(t, 6.0, cfg.Detection.ContextExpiry)
	assert.Equal(t, 3*time.Second, cfg.Detection.Cooldown)
	assert.Equal(t, 0.75, cfg.Detection.ConfidenceThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Detection.FrameInterval)

	assert.Equal(t, 5, cfg.Session.TargetSwings)
	assert.Equal(t, 90*time.Second, cfg.Session.Deadline)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.ReconnectBaseDelay)
	assert.Equal(t, 4, cfg.Session.ReconnectMaxAttempts)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// 未覆盖的值保持默认
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.True(t, cfg.Detection.Grayscale)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("session:\n  target_swings: 5\n"), 0644))

	t.Setenv("SWINGSENSE_SESSION_TARGET_SWINGS", "7")
	t.Setenv("SWINGSENSE_DETECTION_COOLDOWN", "4s")
	t.Setenv("SWINGSENSE_DETECTION_GRAYSCALE", "false")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Session.TargetSwings)
	assert.Equal(t, 4*time.Second, cfg.Detection.Cooldown)
	assert.False(t, cfg.Detection.Grayscale)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"zero submission threshold", func(c *Config) { c.Detection.SubmissionThreshold = 0 }, "submission_threshold"},
		{"expiry below threshold", func(c *Config) { c.Detection.ContextExpiry = 0.5 }, "context_expiry"},
		{"confidence above 1", func(c *Config) { c.Detection.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"zero frame interval", func(c *Config) { c.Detection.FrameInterval = 0 }, "frame_interval"},
		{"zero target swings", func(c *Config) { c.Session.TargetSwings = 0 }, "target_swings"},
		{"zero reconnect attempts", func(c *Config) { c.Session.ReconnectMaxAttempts = 0 }, "reconnect_max_attempts"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoader_CustomValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return os.ErrInvalid }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
