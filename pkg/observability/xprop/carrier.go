package xprop

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
)

// 传播头名称（W3C Trace Context）。
const (
	HeaderTraceparent = "traceparent"
	HeaderTracestate  = "tracestate"
)

// Carrier 可变头部映射，key 大小写不敏感。
//
// 在 propagation.TextMapCarrier 基础上增加 Del，用于 Absent 注入时清除头部。
type Carrier interface {
	propagation.TextMapCarrier
	Del(key string)
}

// 编译时接口检查
var (
	_ Carrier = Header(nil)
	_ Carrier = HTTPHeader{}
	_ Carrier = MetadataCarrier{}
)

// =============================================================================
// Header
// =============================================================================

// Header 扁平的字符串头部映射，key 统一存储为小写。
//
// 直接用字面量构造时调用方需保证 key 为小写；通过 Set 写入则自动规范化。
type Header map[string]string

// NewHeader 从任意大小写的 map 构造 Header，后写入的同名 key 覆盖先写入的。
func NewHeader(kv map[string]string) Header {
	h := make(Header, len(kv))
	for k, v := range kv {
		h.Set(k, v)
	}
	return h
}

// Get 返回 key 对应的值，不存在返回空字符串。
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// Set 写入 key，覆盖已有值。nil Header 上调用为 no-op。
func (h Header) Set(key, value string) {
	if h == nil {
		return
	}
	h[strings.ToLower(key)] = value
}

// Del 删除 key。
func (h Header) Del(key string) {
	delete(h, strings.ToLower(key))
}

// Keys 返回全部 key。
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}

// Clone 返回独立副本。
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// =============================================================================
// HTTPHeader
// =============================================================================

// HTTPHeader 原地包装 http.Header。
type HTTPHeader struct {
	H http.Header
}

// Get 返回 key 的第一个值。
func (c HTTPHeader) Get(key string) string {
	if c.H == nil {
		return ""
	}
	return c.H.Get(key)
}

// Set 写入 key，H 为 nil 时为 no-op。
func (c HTTPHeader) Set(key, value string) {
	if c.H == nil {
		return
	}
	c.H.Set(key, value)
}

// Del 删除 key。
func (c HTTPHeader) Del(key string) {
	if c.H == nil {
		return
	}
	c.H.Del(key)
}

// Keys 返回全部（规范化后的）key。
func (c HTTPHeader) Keys() []string {
	keys := make([]string, 0, len(c.H))
	for k := range c.H {
		keys = append(keys, k)
	}
	return keys
}

// =============================================================================
// MetadataCarrier
// =============================================================================

// MetadataCarrier 原地包装 gRPC metadata.MD（key 由 gRPC 统一小写）。
type MetadataCarrier struct {
	MD metadata.MD
}

// Get 返回 key 的第一个值。
func (c MetadataCarrier) Get(key string) string {
	if vals := c.MD.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Set 写入 key，MD 为 nil 时为 no-op。
func (c MetadataCarrier) Set(key, value string) {
	if c.MD == nil {
		return
	}
	c.MD.Set(key, value)
}

// Del 删除 key。
func (c MetadataCarrier) Del(key string) {
	if c.MD == nil {
		return
	}
	c.MD.Delete(key)
}

// Keys 返回全部 key。
func (c MetadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c.MD))
	for k := range c.MD {
		keys = append(keys, k)
	}
	return keys
}
