// =============================================================================
// 📦 swingsense 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Detection: DefaultDetectionConfig(),
		Session:   DefaultSessionConfig(),
		Speech:    DefaultSpeechConfig(),
		History:   DefaultHistoryConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultDetectionConfig 返回默认检测配置
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		SubmissionThreshold: 1.2,
		ContextExpiry:       5.0,
		Cooldown:            2 * time.Second,
		ConfidenceThreshold: 0.8,
		FrameInterval:       300 * time.Millisecond,
		MaxFrameEdge:        512,
		Grayscale:           true,
		JPEGQuality:         70,
		InferenceURL:        "http://localhost:9090/v1/swing/evaluate",
		InferenceTimeout:    5 * time.Second,
	}
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TargetSwings:         3,
		Deadline:             2 * time.Minute,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxAttempts: 5,
		DetectURL:            "ws://localhost:8080/ws/detect-golf-swing",
	}
}

// DefaultSpeechConfig 返回默认语音配置
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Provider:        "system",
		Voice:           "default",
		PlaybackTimeout: 10 * time.Second,
	}
}

// DefaultHistoryConfig 返回默认历史存储配置
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled: true,
		Path:    "swingsense.db",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "swingsense",
		SampleRate:   1.0,
	}
}
