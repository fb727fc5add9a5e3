// Package otelsetup 为宿主进程构建 OTel TracerProvider 与 MeterProvider。
//
// 导出器按配置选择：
//   - stdout: 控制台输出，用于本地调试
//   - otlp: OTLP/gRPC 导出到 Collector
//   - none: 只创建 Provider，不导出
//
// 采样、批处理与重试交给 OTel SDK，本包只负责组装。
package otelsetup
