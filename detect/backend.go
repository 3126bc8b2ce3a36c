package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/types"
)

// Result 一次推理评估的结论。
type Result struct {
	SwingDetected bool    `json:"swing_detected"`
	Confidence    float64 `json:"confidence"`
}

// Backend 是不透明的挥杆分类推理后端。
// 实现方收到按时间排序的帧序列，最新帧带 HighDetail 标记。
type Backend interface {
	// Evaluate 对一段帧序列执行一次挥杆判定。
	Evaluate(ctx context.Context, frames []WindowFrame) (*Result, error)
	// Name 返回后端名称。
	Name() string
}

// =============================================================================
// 🌐 HTTP 推理后端
// =============================================================================

// HTTPBackendConfig 配置 HTTP 推理后端。
type HTTPBackendConfig struct {
	// URL 推理服务地址
	URL string
	// Timeout 单次请求超时
	Timeout time.Duration
}

// HTTPBackend 将帧序列 POST 到外部推理服务。
type HTTPBackend struct {
	config HTTPBackendConfig
	client *http.Client
	logger *zap.Logger
}

// inferenceFrame 是提交给推理服务的单帧负载。
type inferenceFrame struct {
	Timestamp   float64 `json:"timestamp"`
	ImageBase64 string  `json:"image_base64"`
	// Detail high 表示最新帧，low 表示上下文帧
	Detail string `json:"detail"`
}

type inferenceRequest struct {
	Frames []inferenceFrame `json:"frames"`
}

// NewHTTPBackend 创建 HTTP 推理后端。
func NewHTTPBackend(config HTTPBackendConfig, logger *zap.Logger) *HTTPBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &HTTPBackend{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(zap.String("component", "inference_backend")),
	}
}

// Name 返回后端名称。
func (b *HTTPBackend) Name() string { return "http" }

// Evaluate 提交帧序列并解析判定结果。
func (b *HTTPBackend) Evaluate(ctx context.Context, frames []WindowFrame) (*Result, error) {
	req := inferenceRequest{Frames: make([]inferenceFrame, 0, len(frames))}
	for _, f := range frames {
		detail := "low"
		if f.HighDetail {
			detail = "high"
		}
		// 窗口内的负载已是 base64（客户端编码后上线），原样透传
		req.Frames = append(req.Frames, inferenceFrame{
			Timestamp:   f.Timestamp,
			ImageBase64: f.Image,
			Detail:      detail,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewError(types.ErrInferenceError, "failed to encode inference request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrInferenceError, "failed to build inference request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrInferenceError, "inference request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrInferenceError,
			fmt.Sprintf("inference backend returned status %d", resp.StatusCode)).WithRetryable(true)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, types.NewError(types.ErrInferenceError, "failed to decode inference response").WithCause(err)
	}
	return &result, nil
}
