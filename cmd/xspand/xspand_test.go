package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xspan/internal/otelsetup"
	"github.com/omeyang/xspan/pkg/config/xconf"
	"github.com/omeyang/xspan/pkg/lifecycle/xrun"
	"github.com/omeyang/xspan/pkg/observability/xlog"
	"github.com/omeyang/xspan/pkg/observability/xprop"
)

const parentTraceparent = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xspand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestLogger(t *testing.T, w io.Writer) xlog.LoggerWithLevel {
	t.Helper()
	logger, cleanup, err := xlog.New().SetOutput(w).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger
}

func newTestServer(t *testing.T, w io.Writer) *server {
	t.Helper()
	cfg := defaultConfig()
	cfg.Tracing.Exporter = otelsetup.ExporterNone
	s, err := newServer(context.Background(), cfg, newTestLogger(t, w), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.shutdown(context.Background()) })
	return s
}

// =============================================================================
// 配置
// =============================================================================

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
service:
  name: gateway
tracing:
  exporter: none
  ready_delay: 250ms
reap:
  interval: 30s
`)
	cfg, handle, err := loadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, handle)

	assert.Equal(t, "gateway", cfg.Service.Name)
	assert.Equal(t, ":8080", cfg.Service.Addr, "未配置字段保留默认值")
	assert.Equal(t, otelsetup.ExporterNone, cfg.Tracing.Exporter)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracing.ReadyDelay)
	assert.Equal(t, 30*time.Second, cfg.Reap.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Reap.MaxAge)
	assert.Equal(t, "xspan", cfg.Metrics.Namespace)
	assert.Equal(t, path, handle.Path())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"空地址", "service:\n  addr: \"\"\n", errEmptyServiceAddr},
		{"清扫缺少 max_age", "reap:\n  interval: 1s\n  max_age: 0s\n", errInvalidReap},
		{"负延迟", "tracing:\n  ready_delay: -1s\n", errNegativeDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadConfig(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// HTTP
// =============================================================================

func TestServer_EchoRestoresCallerContext(t *testing.T) {
	s := newTestServer(t, io.Discard)
	handler := s.appHandler()

	readyz := httptest.NewRecorder()
	handler.ServeHTTP(readyz, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, readyz.Code)

	require.NoError(t, s.enableTracing(context.Background()))

	readyz = httptest.NewRecorder()
	handler.ServeHTTP(readyz, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, readyz.Code)

	req := httptest.NewRequest(http.MethodGet, "/echo/GetObject", nil)
	req.Header.Set(xprop.HeaderTraceparent, parentTraceparent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, parentTraceparent, rec.Header().Get(xprop.HeaderTraceparent))

	var body echoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "GetObject", body.Operation)
	assert.Equal(t, otelsetup.DefaultServiceName, body.Service)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", body.TraceID)
	assert.NotEqual(t, parentTraceparent, body.Traceparent)
	assert.True(t, strings.HasPrefix(body.Traceparent, "00-0af7651916cd43dd8448eb211c80319c-"))
	assert.Equal(t, 0, s.engine.Pending())
}

func TestServer_EchoNotReadyPassesThrough(t *testing.T) {
	s := newTestServer(t, io.Discard)

	req := httptest.NewRequest(http.MethodGet, "/echo/PutObject", nil)
	req.Header.Set(xprop.HeaderTraceparent, parentTraceparent)
	rec := httptest.NewRecorder()
	s.appHandler().ServeHTTP(rec, req)

	var body echoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, parentTraceparent, body.Traceparent)
	assert.Empty(t, body.TraceID)
	assert.Empty(t, rec.Header().Get(xprop.HeaderTraceparent))
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, io.Discard)
	require.NoError(t, s.enableTracing(context.Background()))

	s.appHandler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/echo/List", nil))

	rec := httptest.NewRecorder()
	s.metricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, "xspan_pending_entries 0")
	assert.Contains(t, out, "xspan_registry_puts_total 1")
	assert.Contains(t, out, "xspan_registry_pops_total 1")
	assert.Contains(t, out, "go_goroutines")
}

func TestEchoOperation_Fallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/other", nil)
	assert.Equal(t, "POST /other", echoOperation(r))
}

// =============================================================================
// 热加载
// =============================================================================

func TestServer_OnConfigChange(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, &buf)

	path := writeConfig(t, "log:\n  level: info\n")
	handle, err := xconf.New(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	require.NoError(t, handle.Reload())
	s.onConfigChange(handle, nil)
	assert.Equal(t, xlog.LevelDebug, s.logger.GetLevel())
	assert.Contains(t, buf.String(), "log level changed")

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	require.NoError(t, handle.Reload())
	s.onConfigChange(handle, nil)
	assert.Equal(t, xlog.LevelDebug, s.logger.GetLevel(), "非法级别被忽略")
	assert.Contains(t, buf.String(), "ignore invalid log level")

	s.onConfigChange(handle, assert.AnError)
	assert.Contains(t, buf.String(), "reload config failed")
}

// =============================================================================
// 运行
// =============================================================================

func TestServe_StopsOnContextCancel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	handle, err := xconf.New(path)
	require.NoError(t, err)

	cfg := defaultConfig()
	cfg.Service.Addr = "127.0.0.1:0"
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Tracing.Exporter = otelsetup.ExporterNone
	cfg.Tracing.ReadyDelay = 10 * time.Millisecond
	cfg.Reap.Interval = 10 * time.Millisecond
	cfg.Reap.MaxAge = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = serve(ctx, cfg, handle, newTestLogger(t, io.Discard), io.Discard, xrun.WithoutSignalHandler())
	assert.NoError(t, err)
}

func TestServe_ListenFailure(t *testing.T) {
	cfg := defaultConfig()
	cfg.Service.Addr = "127.0.0.1:-1"
	cfg.Metrics.Addr = ""
	cfg.Tracing.Exporter = otelsetup.ExporterNone

	err := serve(context.Background(), cfg, nil, newTestLogger(t, io.Discard), io.Discard, xrun.WithoutSignalHandler())
	assert.Error(t, err)
}

func TestRun_ExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, run(context.Background(), []string{"xspand", "version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), Version)

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"xspand", "serve"}, &stdout, &stderr))

	stderr.Reset()
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	assert.Equal(t, 2, run(context.Background(), []string{"xspand", "serve", "--config", missing}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "配置错误")
}
