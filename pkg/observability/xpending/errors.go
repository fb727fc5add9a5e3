package xpending

import "errors"

var (
	// ErrInvalidShardCount 分片数不是 2 的幂或超出范围。
	ErrInvalidShardCount = errors.New("xpending: invalid shard count")

	// ErrNilMeter RegisterGauge 传入了 nil meter。
	ErrNilMeter = errors.New("xpending: nil meter")
)
