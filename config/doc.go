// Package config 提供 swingsense 的配置加载与校验。
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（前缀 SWINGSENSE）。
// 检测参数对客户端与服务器是同一份事实来源。
package config
