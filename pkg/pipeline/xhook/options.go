package xhook

import "net/http"

// DefaultHTTPServiceName HTTP 中间件默认的服务名。
const DefaultHTTPServiceName = "http"

// Option 配置 HTTP 中间件和 gRPC 拦截器。
type Option func(*config)

type config struct {
	service   string
	operation func(*http.Request) string
}

func newConfig(opts []Option) *config {
	cfg := &config{
		operation: defaultOperation,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithServiceName 设置服务名。
// HTTP 默认 "http"；gRPC 默认取 FullMethod 中的服务部分。
func WithServiceName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.service = name
		}
	}
}

// WithOperationResolver 设置 HTTP 请求到操作名的映射，默认 "<METHOD> <path>"。
func WithOperationResolver(fn func(*http.Request) string) Option {
	return func(c *config) {
		if fn != nil {
			c.operation = fn
		}
	}
}

func defaultOperation(r *http.Request) string {
	if r.URL == nil {
		return r.Method
	}
	return r.Method + " " + r.URL.Path
}
