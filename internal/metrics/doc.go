// Package metrics 提供 swingsense 的 Prometheus 指标收集。
//
// 覆盖检测连接、帧吞吐、推理评估与会话结局四类指标，
// 由 cmd/swingsense 在独立的 metrics 端口上暴露。
package metrics
