/*
Package types 提供 swingsense 的全局共享类型定义。

types 是最底层的公共包，不依赖任何内部包，为 session、detect、voice、
api 等上层模块提供统一的类型契约。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记
  - Frame             — 带会话相对时间戳的相机帧

# 错误分类

终止类（仅 Setup 阶段出现）：ErrPermissionDenied、ErrHardwareFailure。
可重试类：ErrConnectionFailure（由检测通道按指数退避静默重试）。
非致命类：ErrProtocolError、ErrInferenceError（连接保持打开）。
ErrTimeout 不是失败：会话超时产出可用的部分结果。
*/
package types
