// Package xpending 提供在途条目的分片并发注册表。
//
// Registry 把关联 key 映射到一个待完成的条目，典型用法是请求进入时 Put，
// 响应离开时 Pop。注册表本身不理解条目内容，条目的生命周期由调用方负责。
//
// # 并发语义
//
//   - 分片由 xxhash(key) & mask 选择，每个分片一把互斥锁
//   - 同一 key 的 Put/Pop 在同一分片锁上串行化，Put 对之后的任何 Pop 可见
//   - Pop 是原子的取出并删除：同一 key 的并发 Pop 中只有一个拿到条目
//   - Len 读取原子计数器，不加锁
//
// # 覆盖
//
// Put 无条件写入。key 已存在时旧条目被丢弃并返回 replaced=true，
// 是否报告、如何报告由调用方决定。
//
// # 泄漏可观测
//
// 条目没有对应的 Pop 时会一直留在注册表中，注册表不会隐式清理。
// 通过 [Registry.RegisterGauge]（OTel）或 [Registry.Collector]（Prometheus）
// 暴露当前大小，运维据此发现泄漏。需要限制陈旧条目时由调用方显式调用 [Registry.Sweep]。
package xpending
