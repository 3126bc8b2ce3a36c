// =============================================================================
// 📦 swingsense 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SWINGSENSE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
//
// 检测参数（阈值、冷却、过期）是客户端与服务器共享的单一事实来源：
// 双方从同一配置构造，线上以服务器加载的数值为准。
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 swingsense 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Detection 检测状态机配置（客户端与服务器共享）
	Detection DetectionConfig `yaml:"detection" env:"DETECTION"`

	// Session 录制会话配置
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Speech 语音提示配置
	Speech SpeechConfig `yaml:"speech" env:"SPEECH"`

	// History 会话历史存储配置
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每 IP 请求速率限制
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 速率限制突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// API Keys（为空时跳过认证）
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
}

// DetectionConfig 检测状态机配置。
// 客户端与服务器两侧的阈值来自同一份配置。
type DetectionConfig struct {
	// 提交阈值：缓冲时间跨度达到该值才请求一次推理评估（秒）
	SubmissionThreshold float64 `yaml:"submission_threshold" env:"SUBMISSION_THRESHOLD"`
	// 上下文过期：窗口内最新与最旧帧的时间差上限（秒）
	ContextExpiry float64 `yaml:"context_expiry" env:"CONTEXT_EXPIRY"`
	// 冷却时长：检出一次挥杆后暂停评估的时间
	Cooldown time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	// 置信度阈值：低于该值的评估结果不计数
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
	// 帧采样间隔：客户端外发帧的最小间隔
	FrameInterval time.Duration `yaml:"frame_interval" env:"FRAME_INTERVAL"`
	// 最大边长：外发前帧图像缩放的包围盒边长（像素）
	MaxFrameEdge int `yaml:"max_frame_edge" env:"MAX_FRAME_EDGE"`
	// 是否去饱和（灰度化）以降低推理成本
	Grayscale bool `yaml:"grayscale" env:"GRAYSCALE"`
	// JPEG 压缩质量（1-100）
	JPEGQuality int `yaml:"jpeg_quality" env:"JPEG_QUALITY"`
	// 推理后端地址
	InferenceURL string `yaml:"inference_url" env:"INFERENCE_URL"`
	// 单次推理请求超时
	InferenceTimeout time.Duration `yaml:"inference_timeout" env:"INFERENCE_TIMEOUT"`
}

// SessionConfig 录制会话配置
type SessionConfig struct {
	// 目标挥杆数：达到后自动结束录制
	TargetSwings int `yaml:"target_swings" env:"TARGET_SWINGS"`
	// 会话截止时长：到期未达标按超时正常结束
	Deadline time.Duration `yaml:"deadline" env:"DEADLINE"`
	// 重连基础延迟：第 n 次重连等待 base × 2^n
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay" env:"RECONNECT_BASE_DELAY"`
	// 最大重连次数：用尽后向会话上报致命错误
	ReconnectMaxAttempts int `yaml:"reconnect_max_attempts" env:"RECONNECT_MAX_ATTEMPTS"`
	// 检测服务器地址（ws:// 或 wss://）
	DetectURL string `yaml:"detect_url" env:"DETECT_URL"`
}

// SpeechConfig 语音提示配置
type SpeechConfig struct {
	// 提供者名称（仅作记录，合成器由调用方注入）
	Provider string `yaml:"provider" env:"PROVIDER"`
	// 声音标识
	Voice string `yaml:"voice" env:"VOICE"`
	// 单条提示播放超时
	PlaybackTimeout time.Duration `yaml:"playback_timeout" env:"PLAYBACK_TIMEOUT"`
}

// HistoryConfig 会话历史存储配置
type HistoryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// SQLite 文件路径
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SWINGSENSE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	// 验证检测配置
	if c.Detection.SubmissionThreshold <= 0 {
		errs = append(errs, "submission_threshold must be positive")
	}
	if c.Detection.ContextExpiry < c.Detection.SubmissionThreshold {
		errs = append(errs, "context_expiry must be >= submission_threshold")
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		errs = append(errs, "confidence_threshold must be between 0 and 1")
	}
	if c.Detection.FrameInterval <= 0 {
		errs = append(errs, "frame_interval must be positive")
	}
	if c.Detection.JPEGQuality < 1 || c.Detection.JPEGQuality > 100 {
		errs = append(errs, "jpeg_quality must be between 1 and 100")
	}

	// 验证会话配置
	if c.Session.TargetSwings <= 0 {
		errs = append(errs, "target_swings must be positive")
	}
	if c.Session.ReconnectMaxAttempts <= 0 {
		errs = append(errs, "reconnect_max_attempts must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
