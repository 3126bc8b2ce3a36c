/*
Package detect 实现检测服务器侧的单连接滚动缓冲状态机。

每条 WebSocket 连接持有独立的 Engine：

	Collecting → Evaluating → (Cooldown | Collecting)

帧到达时追加进 ContextWindow 并惰性淘汰过期帧；窗口时间跨度达到
提交阈值且不处于冷却期时，将帧序列（最新帧高细节）提交给不透明的
推理后端。检出挥杆后进入固定时长的冷却并清空窗口；推理失败与消息
格式错误以 status:"error" 回推，连接保持打开。
*/
package detect
