package xpending

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Registry 分片并发注册表，key 为关联 key，V 为在途条目。
//
// 零值不可用，必须通过 [New] 创建。所有方法并发安全。
type Registry[V any] struct {
	shards []shard[V]
	mask   uint64
	count  atomic.Int64

	puts       atomic.Uint64
	pops       atomic.Uint64
	misses     atomic.Uint64
	overwrites atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]V
}

// Stats 注册表统计快照。
type Stats struct {
	Pending    int    // 当前在途条目数
	Puts       uint64 // Put 总次数
	Pops       uint64 // 命中的 Pop 次数
	Misses     uint64 // 未命中的 Pop 次数
	Overwrites uint64 // 覆盖已有条目的 Put 次数
}

// New 创建注册表。
func New[V any](opts ...Option) (*Registry[V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	shards := make([]shard[V], o.shardCount)
	for i := range shards {
		shards[i].entries = make(map[string]V)
	}
	return &Registry[V]{
		shards: shards,
		mask:   o.shardMask,
	}, nil
}

func (r *Registry[V]) shardFor(key string) *shard[V] {
	return &r.shards[xxhash.Sum64String(key)&r.mask]
}

// Put 无条件写入 key。key 已存在时旧条目被丢弃，返回 true。
func (r *Registry[V]) Put(key string, v V) (replaced bool) {
	s := r.shardFor(key)
	s.mu.Lock()
	_, replaced = s.entries[key]
	s.entries[key] = v
	s.mu.Unlock()

	r.puts.Add(1)
	if replaced {
		r.overwrites.Add(1)
	} else {
		r.count.Add(1)
	}
	return replaced
}

// Pop 原子地取出并删除 key 对应的条目。
// 同一 key 的并发 Pop 中只有一个返回 (v, true)，其余返回零值和 false。
func (r *Registry[V]) Pop(key string) (V, bool) {
	s := r.shardFor(key)
	s.mu.Lock()
	v, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if !ok {
		r.misses.Add(1)
		return v, false
	}
	r.count.Add(-1)
	r.pops.Add(1)
	return v, true
}

// Len 返回当前在途条目数。
func (r *Registry[V]) Len() int {
	return int(max(r.count.Load(), 0))
}

// Drain 取出并删除全部条目，用于销毁注册表前回收在途条目。
// 与并发 Put 交错时，Drain 之后写入的条目不包含在返回值中。
func (r *Registry[V]) Drain() []V {
	out := make([]V, 0, r.Len())
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for k, v := range s.entries {
			out = append(out, v)
			delete(s.entries, k)
		}
		s.mu.Unlock()
	}
	r.count.Add(-int64(len(out)))
	return out
}

// Sweep 取出并删除 age(v) 早于 cutoff 的条目。
//
// 注册表不会自行调用 Sweep；限制陈旧条目是调用方的显式决定。
func (r *Registry[V]) Sweep(cutoff time.Time, age func(V) time.Time) []V {
	if age == nil {
		return nil
	}
	var out []V
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for k, v := range s.entries {
			if age(v).Before(cutoff) {
				out = append(out, v)
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
	r.count.Add(-int64(len(out)))
	return out
}

// Stats 返回统计快照。各字段分别原子读取，彼此之间不保证一致。
func (r *Registry[V]) Stats() Stats {
	return Stats{
		Pending:    r.Len(),
		Puts:       r.puts.Load(),
		Pops:       r.pops.Load(),
		Misses:     r.misses.Load(),
		Overwrites: r.overwrites.Load(),
	}
}
