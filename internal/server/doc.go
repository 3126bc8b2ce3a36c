// 软件包 server 提供 HTTP 服务器的生命周期管理：
// 非阻塞启动、信号驱动的优雅关闭、异步错误上报.
//
// 检测服务与 metrics 端点各自持有一个 Manager，互不影响.
package server
