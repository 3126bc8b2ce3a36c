// Package protocol 定义检测通道的双向线缆协议。
//
// 客户端通过 /ws/detect-golf-swing 建立持久 WebSocket 连接，
// 按捕获顺序发送带会话相对时间戳的帧，服务器按 status 字段回推事件。
package protocol

import (
	"encoding/json"
	"fmt"
)

// DetectPath 检测通道的 WebSocket 端点路径。
const DetectPath = "/ws/detect-golf-swing"

// Status 服务器回推消息的类型标签。
type Status string

const (
	// StatusEvaluated 一次推理评估完成，携带 swing_detected 与 confidence
	StatusEvaluated Status = "evaluated"
	// StatusCooldown 冷却期内收到帧，仅缓冲不评估
	StatusCooldown Status = "cooldown"
	// StatusAwaitingMoreData 缓冲时间跨度尚未达到提交阈值
	StatusAwaitingMoreData Status = "awaiting_more_data"
	// StatusError 非致命错误（推理失败或消息格式错误），连接保持打开
	StatusError Status = "error"
)

// FrameMessage 客户端→服务器：一帧图像。
type FrameMessage struct {
	// Timestamp 会话相对捕获时间（秒），单调递增
	Timestamp float64 `json:"timestamp"`
	// ImageBase64 经缩放压缩后 base64 编码的图像
	ImageBase64 string `json:"image_base64"`
}

// EventMessage 服务器→客户端：检测事件。
// 可选字段按 Status 取值填充。
type EventMessage struct {
	Status Status `json:"status"`

	// StatusEvaluated 时填充
	SwingDetected *bool    `json:"swing_detected,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Timestamp     *float64 `json:"timestamp,omitempty"`

	// StatusAwaitingMoreData 时填充
	ContextWindow *float64 `json:"context_window,omitempty"`
	ContextSize   *int     `json:"context_size,omitempty"`

	// StatusCooldown 时填充
	CooldownRemaining *float64 `json:"cooldown_remaining,omitempty"`

	// StatusError 时填充
	Error string `json:"error,omitempty"`
}

// ParseFrame 解析客户端帧消息并做基本校验。
func ParseFrame(data []byte) (*FrameMessage, error) {
	var msg FrameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if msg.Timestamp < 0 {
		return nil, fmt.Errorf("negative timestamp: %f", msg.Timestamp)
	}
	if msg.ImageBase64 == "" {
		return nil, fmt.Errorf("empty image payload")
	}
	return &msg, nil
}

// NewEvaluated 构造一条评估结果消息。
func NewEvaluated(detected bool, confidence, timestamp float64) EventMessage {
	return EventMessage{
		Status:        StatusEvaluated,
		SwingDetected: &detected,
		Confidence:    &confidence,
		Timestamp:     &timestamp,
	}
}

// NewCooldown 构造一条冷却通知消息。
func NewCooldown(remaining float64) EventMessage {
	return EventMessage{Status: StatusCooldown, CooldownRemaining: &remaining}
}

// NewAwaitingMoreData 构造一条等待更多数据的消息。
func NewAwaitingMoreData(windowSpan float64, size int) EventMessage {
	return EventMessage{
		Status:        StatusAwaitingMoreData,
		ContextWindow: &windowSpan,
		ContextSize:   &size,
	}
}

// NewErrorEvent 构造一条非致命错误消息。
func NewErrorEvent(msg string) EventMessage {
	return EventMessage{Status: StatusError, Error: msg}
}
