package xhook

import (
	"context"
	"strings"

	"github.com/omeyang/xspan/pkg/observability/xprop"
	"github.com/omeyang/xspan/pkg/observability/xspan"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// GRPCUnaryServerInterceptor 返回接入 engine 的 gRPC 一元服务端拦截器。
//
// ingress 作用于入站 metadata，handler 看到的 incoming metadata 带有新 span 上下文；
// egress 写入单独的响应头 metadata，非空时通过 grpc.SetHeader 发送。
// 服务名和操作名取自 FullMethod（"/pkg.Service/Method"），WithServiceName 可覆盖服务名。
func GRPCUnaryServerInterceptor(engine *xspan.Engine, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !engine.Ready() || info == nil {
			return handler(ctx, req)
		}

		service, method := splitFullMethod(info.FullMethod)
		if cfg.service != "" {
			service = cfg.service
		}

		// FromIncomingContext 返回副本，修改不影响传输层持有的 metadata。
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.MD{}
		}
		header := metadata.MD{}

		xreq := &xspan.Request{Service: service, Operation: method, Headers: xprop.MetadataCarrier{MD: md}}
		xresp := &xspan.Response{Headers: xprop.MetadataCarrier{MD: header}}

		ctx = engine.Begin(ctx, xreq, xresp)
		ctx = metadata.NewIncomingContext(ctx, md)

		// 外层 recovery 拦截器恢复 handler panic 时，egress 仍需执行。
		defer func() {
			engine.End(ctx, xreq, xresp)
			if header.Len() > 0 {
				// 设计决策: 头部已发送或无传输流时 SetHeader 失败，追踪不影响调用结果。
				_ = grpc.SetHeader(ctx, header)
			}
		}()

		return handler(ctx, req)
	}
}

// splitFullMethod 把 "/pkg.Service/Method" 拆分为服务名和方法名，格式不符返回空串。
func splitFullMethod(fullMethod string) (service, method string) {
	name := strings.TrimPrefix(fullMethod, "/")
	i := strings.LastIndex(name, "/")
	if i <= 0 || i == len(name)-1 {
		return "", ""
	}
	return name[:i], name[i+1:]
}
