package xprop

import (
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// traceparent 解析与格式化
// =============================================================================
//
// 格式：{version}-{trace-id}-{parent-id}-{trace-flags}
// 示例：00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
//
// W3C 前向兼容性：
//   - 版本 "ff" 保留，始终无效
//   - 版本 00 必须恰好 55 字符
//   - 更高版本按 version-00 格式解析前 4 个字段，其后的扩展字段以 "-" 分隔并被忽略
//
// trace-flags 按 8 位整体保留，不只看 sampled 位：
// 上游设置的其他位（如 random）在父上下文恢复时必须原样写回。

// traceparentLen version(2) + trace-id(32) + span-id(16) + flags(2) + 3 个分隔符
const traceparentLen = 55

const hexDigits = "0123456789abcdef"

// hasTraceparentSeparators 验证分隔符位置。调用方保证 len(s) >= 55。
func hasTraceparentSeparators(s string) bool {
	return s[2] == '-' && s[35] == '-' && s[52] == '-'
}

// validateTraceparentStructure 验证长度、分隔符、版本及版本对应的长度约束。
func validateTraceparentStructure(s string) bool {
	if len(s) < traceparentLen || !hasTraceparentSeparators(s) {
		return false
	}
	version := s[0:2]
	if !isLowerHex(version) || version == "ff" {
		return false
	}
	if version == "00" {
		return len(s) == traceparentLen
	}
	return len(s) == traceparentLen || s[traceparentLen] == '-'
}

// parseTraceparent 解析 traceparent 头部值。
// trace-id、span-id 全零或含大写/非十六进制字符时失败。
func parseTraceparent(s string) (traceID trace.TraceID, spanID trace.SpanID, flags trace.TraceFlags, ok bool) {
	if !validateTraceparentStructure(s) {
		return traceID, spanID, 0, false
	}

	// TraceIDFromHex/SpanIDFromHex 只接受小写十六进制，并拒绝全零 ID。
	traceID, err := trace.TraceIDFromHex(s[3:35])
	if err != nil {
		return traceID, spanID, 0, false
	}
	spanID, err = trace.SpanIDFromHex(s[36:52])
	if err != nil {
		return traceID, spanID, 0, false
	}

	f, ok := parseHexByte(s[53:55])
	if !ok {
		return traceID, spanID, 0, false
	}
	return traceID, spanID, trace.TraceFlags(f), true
}

// formatTraceparent 生成 version 00 的 traceparent。
// 使用固定长度缓冲区逐字节写入，避免 fmt.Sprintf 的反射开销。
func formatTraceparent(traceID trace.TraceID, spanID trace.SpanID, flags trace.TraceFlags) string {
	var buf [traceparentLen]byte
	buf[0], buf[1], buf[2] = '0', '0', '-'
	pos := 3
	for _, b := range traceID {
		buf[pos] = hexDigits[b>>4]
		buf[pos+1] = hexDigits[b&0x0f]
		pos += 2
	}
	buf[pos] = '-'
	pos++
	for _, b := range spanID {
		buf[pos] = hexDigits[b>>4]
		buf[pos+1] = hexDigits[b&0x0f]
		pos += 2
	}
	buf[pos] = '-'
	f := byte(flags)
	buf[pos+1] = hexDigits[f>>4]
	buf[pos+2] = hexDigits[f&0x0f]
	return string(buf[:])
}

// isLowerHex 是否全部为小写十六进制字符。W3C 要求头部值使用小写。
func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if fromHexChar(s[i]) < 0 {
			return false
		}
	}
	return true
}

func parseHexByte(s string) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	hi, lo := fromHexChar(s[0]), fromHexChar(s[1])
	if hi < 0 || lo < 0 {
		return 0, false
	}
	return byte(hi<<4 | lo), true
}

func fromHexChar(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}
