package xlog

import "errors"

var (
	// ErrUnknownLevel 表示无法识别的日志级别字符串。
	ErrUnknownLevel = errors.New("xlog: unknown level")

	// ErrUnknownFormat 表示无法识别的输出格式。
	ErrUnknownFormat = errors.New("xlog: unknown format")

	// ErrNilHandler 表示 NewEnrichHandler 的 base handler 为 nil。
	ErrNilHandler = errors.New("xlog: base handler is nil")

	// ErrEmptyFilename 表示 SetRotation 的文件名为空。
	ErrEmptyFilename = errors.New("xlog: empty rotation filename")
)
