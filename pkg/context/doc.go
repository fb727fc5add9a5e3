// Package context 提供上下文相关的子包。
//
// 子包列表：
//   - xctx: Context 增强，注入/提取追踪与管道（service/operation）字段
//
// 设计原则：
//   - 所有上下文信息通过 context.Context 传递，不使用全局变量
//   - 与 W3C Trace Context 的十六进制表示保持一致
package context
