package xhook

import (
	"context"

	"github.com/omeyang/xspan/pkg/observability/xspan"
)

// IngressHook 返回调用 engine.Begin 的 ingress 处理器。
func IngressHook(engine *xspan.Engine) RequestHandler {
	return func(ctx context.Context, req *xspan.Request, resp *xspan.Response) context.Context {
		if !engine.Ready() {
			return ctx
		}
		return engine.Begin(ctx, req, resp)
	}
}

// EgressHook 返回调用 engine.End 的 egress 处理器。
func EgressHook(engine *xspan.Engine) ResponseHandler {
	return func(ctx context.Context, req *xspan.Request, resp *xspan.Response) {
		if !engine.Ready() {
			return
		}
		engine.End(ctx, req, resp)
	}
}

// Register 把 engine 的 ingress/egress 钩子追加到 chain。
func Register(chain *Chain, engine *xspan.Engine) {
	if chain == nil {
		return
	}
	chain.AppendRequestHandler(IngressHook(engine))
	chain.AppendResponseHandler(EgressHook(engine))
}
