package xpending

import "fmt"

const (
	defaultShardCount = 32
	maxShardCount     = 1 << 16 // 65536
)

// Option 定义 Registry 可选配置。
type Option func(*options)

type options struct {
	shardCount int
	shardMask  uint64 // validate() 计算，供 shardFor 使用
}

func defaultOptions() options {
	return options{
		shardCount: defaultShardCount,
	}
}

// WithShardCount 设置分片数量。
// n 必须为正整数且为 2 的幂，上限 65536，否则 New 返回错误。默认 32。
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

func (o *options) validate() error {
	sc := o.shardCount
	if sc <= 0 || sc > maxShardCount || sc&(sc-1) != 0 {
		return fmt.Errorf("%w: must be a positive power of 2 (max %d), got %d",
			ErrInvalidShardCount, maxShardCount, sc)
	}
	o.shardMask = uint64(sc - 1)
	return nil
}
