package xctx_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/omeyang/xspan/pkg/context/xctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestStringFields(t *testing.T) {
	tests := []struct {
		name   string
		setter func(context.Context, string) (context.Context, error)
		getter func(context.Context) string
	}{
		{"TraceID", xctx.WithTraceID, xctx.TraceID},
		{"SpanID", xctx.WithSpanID, xctx.SpanID},
		{"TraceFlags", xctx.WithTraceFlags, xctx.TraceFlags},
		{"Service", xctx.WithService, xctx.Service},
		{"Operation", xctx.WithOperation, xctx.Operation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, tt.getter(context.Background()))

			ctx, err := tt.setter(context.Background(), "v1")
			require.NoError(t, err)
			assert.Equal(t, "v1", tt.getter(ctx))

			ctx, err = tt.setter(ctx, "v2")
			require.NoError(t, err)
			assert.Equal(t, "v2", tt.getter(ctx))

			var nilCtx context.Context
			assert.Empty(t, tt.getter(nilCtx))
			_, err = tt.setter(nilCtx, "v")
			assert.ErrorIs(t, err, xctx.ErrNilContext)
		})
	}
}

func TestWithSpanContext(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	ctx, err := xctx.WithSpanContext(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", xctx.TraceID(ctx))
	assert.Equal(t, "b7ad6b7169203331", xctx.SpanID(ctx))
	assert.Equal(t, "01", xctx.TraceFlags(ctx))
}

func TestWithSpanContext_Invalid(t *testing.T) {
	base := context.Background()
	ctx, err := xctx.WithSpanContext(base, trace.SpanContext{})
	require.NoError(t, err)
	assert.Equal(t, base, ctx)

	var nilCtx context.Context
	_, err = xctx.WithSpanContext(nilCtx, trace.SpanContext{})
	assert.ErrorIs(t, err, xctx.ErrNilContext)
}

func TestWithPipeline_SkipsEmpty(t *testing.T) {
	ctx, err := xctx.WithPipeline(context.Background(), "s3", "")
	require.NoError(t, err)
	assert.Equal(t, "s3", xctx.Service(ctx))
	assert.Empty(t, xctx.Operation(ctx))

	ctx, err = xctx.WithPipeline(ctx, "", "PutObject")
	require.NoError(t, err)
	assert.Equal(t, "s3", xctx.Service(ctx))
	assert.Equal(t, "PutObject", xctx.Operation(ctx))
}

func TestLogAttrs(t *testing.T) {
	assert.Nil(t, xctx.LogAttrs(context.Background()))

	ctx, _ := xctx.WithTraceID(context.Background(), "t1")
	ctx, _ = xctx.WithService(ctx, "sqs")
	attrs := xctx.LogAttrs(ctx)
	assert.Equal(t, []slog.Attr{
		slog.String(xctx.KeyTraceID, "t1"),
		slog.String(xctx.KeyService, "sqs"),
	}, attrs)
}
