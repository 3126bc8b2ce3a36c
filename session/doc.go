// 软件包 session 实现客户端录制会话的核心协调逻辑：
// 帧采样器（FrameSampler）、检测通道（DetectionChannel）
// 与顶层会话状态机（Controller）.
//
// 阶段流转：Setup → Recording → Processing/Error → Setup.
// 同一设备同一时刻至多一个活动会话；所有阶段迁移经由
// Controller 的单一串行化点，定时器、网络与语音回调不会
// 直接并发修改会话状态.
package session
