// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，内置文件轮转
//   - xprop: W3C Trace Context 载体与编解码
//   - xpending: 分片在途注册表，按 key 原子取出
//   - xspan: 请求/响应 span 关联引擎
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 自动从 context 中提取追踪信息注入日志
//   - 追踪后端未就绪时所有操作退化为 no-op
package observability
