// Package xconf 基于 koanf 加载 YAML/JSON 配置，并支持文件变更热加载。
//
// # 加载
//
//	cfg, err := xconf.New("/etc/xspand/config.yaml")
//	var app AppConfig
//	err = cfg.Unmarshal("", &app)
//
// 文件格式按扩展名识别（.yaml/.yml/.json）。[NewFromBytes] 用于 ConfigMap 等
// 非文件来源，需要显式指定格式。
//
// 默认值通过预填充目标结构体实现：Unmarshal 只覆盖配置中出现的字段。
// [Decode] 把"加载 + 预填充默认值 + 反序列化"合成一步。
//
// # 类型转换
//
// 反序列化使用 koanf 默认的 mapstructure 钩子：
//   - "10s"、"5m" 等字符串解码为 time.Duration
//   - 实现 encoding.TextUnmarshaler 的类型（如 xlog.Level）按文本解码
//
// # 热加载
//
// [Watch] 监视配置文件所在目录（编辑器常以"写临时文件再 rename"的方式保存），
// 防抖后调用 Reload 并回调。[Watcher.Run] 阻塞到 ctx 取消，签名与 xrun 服务函数一致：
//
//	w, _ := xconf.Watch(cfg, onReload)
//	g.Go(w.Run)
package xconf
