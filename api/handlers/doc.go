// 软件包 handlers 提供检测服务的 HTTP 处理器：
// 健康/就绪/版本端点与会话历史查询 API.
//
// WebSocket 检测端点位于 detect 包，不在此处.
package handlers
