// Package xrun 管理进程内多个长期运行任务的启动与协调关闭。
//
// 基于 errgroup + context：任一任务返回错误、父 ctx 取消或收到退出信号时，
// 其余任务的 ctx 同时被取消。[Group.Wait] 返回第一个有意义的退出原因。
//
// # 任务函数
//
// 所有任务都是 func(ctx context.Context) error，包内提供常用形态：
//   - [HTTPServer]：http.Server 的优雅关闭包装
//   - [Ticker]：周期任务（如在途 span 清理）
//   - [Timer]：延迟执行一次（如追踪后端延迟就绪）
//
// # 信号
//
// [Run] 默认监听 [DefaultSignals]，收到信号时以 *[SignalError] 取消 Group，
// 调用方用 errors.Is(err, ErrSignal) 区分信号退出与故障退出。
package xrun
