package xspan

import "errors"

var (
	// ErrEmptyRootSpanName 根 span 名称为空。
	ErrEmptyRootSpanName = errors.New("xspan: empty root span name")

	// ErrInvalidSpanKind span kind 不在 OTel 定义范围内。
	ErrInvalidSpanKind = errors.New("xspan: invalid span kind")

	// ErrSpanStart 追踪后端创建 span 时 panic。
	// 仅用于日志，Begin/End 不返回错误。
	ErrSpanStart = errors.New("xspan: span start failed")

	// ErrInvalidKey 注入后读回的 traceparent 无效。
	ErrInvalidKey = errors.New("xspan: invalid correlation key")
)
