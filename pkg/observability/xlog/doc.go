// Package xlog 基于 log/slog 的结构化日志。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - EnrichHandler 自动从 context 注入 trace_id、span_id、service、operation（默认启用）
//   - 动态级别调整（配置热更新时使用）
//   - 全局 Logger 便利函数
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，Build 返回该错误。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xspand.log").
//		Build()
//	defer cleanup()
//
// # 全局 Logger
//
// [Default] 惰性初始化（stderr、Info、text）。库代码在未注入 Logger 时回落到全局 Logger，
// 服务端推荐依赖注入。
//
// 所有方法签名为 (ctx, msg, ...slog.Attr)，强制传递 context 以携带追踪字段。
package xlog
