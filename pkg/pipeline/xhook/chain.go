package xhook

import (
	"context"
	"sync"

	"github.com/omeyang/xspan/pkg/observability/xprop"
	"github.com/omeyang/xspan/pkg/observability/xspan"
)

// RequestHandler ingress 处理器，在请求分发前按注册顺序执行。
// 返回的 ctx 传给后续处理器和分发函数。
type RequestHandler func(ctx context.Context, req *xspan.Request, resp *xspan.Response) context.Context

// ResponseHandler egress 处理器，在响应产生后、返回调用方前按注册顺序执行。
type ResponseHandler func(ctx context.Context, req *xspan.Request, resp *xspan.Response)

// Dispatch 处理请求并填充响应。
type Dispatch func(ctx context.Context, req *xspan.Request, resp *xspan.Response) error

// Chain 请求/响应处理器链。
//
// 处理器可在运行期间追加，Handle 使用调用时刻的快照。
type Chain struct {
	mu       sync.RWMutex
	requests []RequestHandler
	responds []ResponseHandler
}

// NewChain 创建空的处理器链。
func NewChain() *Chain {
	return &Chain{}
}

// AppendRequestHandler 追加 ingress 处理器，nil 被忽略。
func (c *Chain) AppendRequestHandler(h RequestHandler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.requests = append(c.requests, h)
	c.mu.Unlock()
}

// AppendResponseHandler 追加 egress 处理器，nil 被忽略。
func (c *Chain) AppendResponseHandler(h ResponseHandler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.responds = append(c.responds, h)
	c.mu.Unlock()
}

// Handle 依次执行 ingress 处理器、dispatch、egress 处理器，返回响应。
//
// dispatch 返回错误时 egress 处理器仍会执行，使在途 span 得以结束；
// 错误原样返回给调用方。req.Headers 为 nil 时初始化为空 [xprop.Header]。
func (c *Chain) Handle(ctx context.Context, req *xspan.Request, dispatch Dispatch) (*xspan.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req != nil && req.Headers == nil {
		req.Headers = xprop.Header{}
	}
	resp := &xspan.Response{Headers: xprop.Header{}}

	c.mu.RLock()
	requests := c.requests
	responds := c.responds
	c.mu.RUnlock()

	for _, h := range requests {
		if next := h(ctx, req, resp); next != nil {
			ctx = next
		}
	}

	var err error
	if dispatch != nil {
		err = dispatch(ctx, req, resp)
	}

	for _, h := range responds {
		h(ctx, req, resp)
	}
	return resp, err
}
