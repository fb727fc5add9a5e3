package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omeyang/xspan/pkg/context/xctx"
	"github.com/omeyang/xspan/pkg/observability/xlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, b *xlog.Builder) xlog.LoggerWithLevel {
	t.Helper()
	logger, cleanup, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })
	return logger
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetLevel(xlog.LevelWarn))

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message", xlog.Err(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error=boom")
}

func TestLogger_DynamicLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf))

	assert.False(t, logger.Enabled(context.Background(), xlog.LevelDebug))
	logger.SetLevel(xlog.LevelDebug)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())

	child := logger.With(xlog.Component("engine"))
	child.Debug(context.Background(), "visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "component=engine")
}

func TestLogger_EnrichFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetFormat("json"))

	ctx, err := xctx.WithTraceID(context.Background(), "0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	ctx, err = xctx.WithPipeline(ctx, "s3", "GetObject")
	require.NoError(t, err)

	logger.Info(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", rec[xctx.KeyTraceID])
	assert.Equal(t, "s3", rec[xctx.KeyService])
	assert.Equal(t, "GetObject", rec[xctx.KeyOperation])
}

func TestLogger_EnrichDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetEnrich(false))

	ctx, _ := xctx.WithTraceID(context.Background(), "abc")
	logger.Info(ctx, "hello")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := xlog.New().SetFormat("xml").Build()
	assert.ErrorIs(t, err, xlog.ErrUnknownFormat)

	_, _, err = xlog.New().SetLevelString("verbose").Build()
	assert.ErrorIs(t, err, xlog.ErrUnknownLevel)

	_, _, err = xlog.New().SetRotation("  ").Build()
	assert.ErrorIs(t, err, xlog.ErrEmptyFilename)

	// first-error-wins
	_, _, err = xlog.New().SetLevelString("nope").SetFormat("xml").Build()
	assert.ErrorIs(t, err, xlog.ErrUnknownLevel)
}

func TestBuilder_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, cleanup, err := xlog.New().
		SetRotation(path, xlog.WithMaxSizeMB(1), xlog.WithMaxBackups(1), xlog.WithCompress(false)).
		Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "to file")
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want xlog.Level
	}{
		{"debug", xlog.LevelDebug},
		{" INFO ", xlog.LevelInfo},
		{"warning", xlog.LevelWarn},
		{"Error", xlog.LevelError},
		{"info+2", xlog.LevelInfo + 2},
		{"DEBUG-1", xlog.LevelDebug - 1},
	}
	for _, tt := range tests {
		got, err := xlog.ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	var l xlog.Level
	require.NoError(t, l.UnmarshalText([]byte("warn")))
	assert.Equal(t, "WARN", l.String())
	text, err := l.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WARN", string(text))

	// 非标准级别的字符串形式可以原样解析回来
	custom := xlog.LevelWarn + 1
	assert.Equal(t, "WARN+1", custom.String())
	back, err := xlog.ParseLevel(custom.String())
	require.NoError(t, err)
	assert.Equal(t, custom, back)

	for _, bad := range []string{"", "verbose", "info+x"} {
		_, err := xlog.ParseLevel(bad)
		assert.ErrorIs(t, err, xlog.ErrUnknownLevel, bad)
	}
}

func TestGlobal(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)

	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug))
	xlog.SetDefault(logger)
	xlog.SetDefault(nil)

	ctx := context.Background()
	xlog.Debug(ctx, "g-debug")
	xlog.Info(ctx, "g-info")
	xlog.Warn(ctx, "g-warn", xlog.Count(3))
	xlog.Error(ctx, "g-error", xlog.Key("k1"))

	out := buf.String()
	for _, want := range []string{"g-debug", "g-info", "g-warn", "count=3", "g-error", "key=k1"} {
		assert.True(t, strings.Contains(out, want), "missing %q in %s", want, out)
	}

	xlog.ResetDefault()
	assert.NotSame(t, logger, xlog.Default())
}

func TestNewEnrichHandler_Nil(t *testing.T) {
	_, err := xlog.NewEnrichHandler(nil)
	assert.ErrorIs(t, err, xlog.ErrNilHandler)
}
