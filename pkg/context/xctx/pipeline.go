package xctx

import "context"

// WithService 将服务名注入 context。
func WithService(ctx context.Context, service string) (context.Context, error) {
	return withString(ctx, keyService, service)
}

// Service 从 context 提取服务名。
func Service(ctx context.Context) string {
	return stringValue(ctx, keyService)
}

// WithOperation 将操作名注入 context。
func WithOperation(ctx context.Context, operation string) (context.Context, error) {
	return withString(ctx, keyOperation, operation)
}

// Operation 从 context 提取操作名。
func Operation(ctx context.Context) string {
	return stringValue(ctx, keyOperation)
}

// WithPipeline 同时注入服务名和操作名，空值字段跳过。
func WithPipeline(ctx context.Context, service, operation string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if service != "" {
		ctx = context.WithValue(ctx, keyService, service)
	}
	if operation != "" {
		ctx = context.WithValue(ctx, keyOperation, operation)
	}
	return ctx, nil
}
