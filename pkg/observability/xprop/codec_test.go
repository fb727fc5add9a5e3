package xprop_test

import (
	"net/http"
	"testing"

	"github.com/omeyang/xspan/pkg/observability/xprop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"
)

const (
	validTP = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	validTS = "congo=t61rcWkgMzE,rojo=00f067aa0ba902b7"
)

func TestW3C_Extract(t *testing.T) {
	codec := xprop.W3C()

	tests := []struct {
		name    string
		headers map[string]string
		present bool
		wantTP  string
		wantTS  string
	}{
		{"no headers", nil, false, "", ""},
		{"valid sampled", map[string]string{"traceparent": validTP}, true, validTP, ""},
		{"valid with tracestate", map[string]string{"traceparent": validTP, "tracestate": validTS}, true, validTP, validTS},
		{"upper-case header name", map[string]string{"Traceparent": validTP}, true, validTP, ""},
		{"not sampled", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-00"}, true,
			"00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-00", ""},
		{"garbage", map[string]string{"traceparent": "not-a-traceparent"}, false, "", ""},
		{"empty value", map[string]string{"traceparent": ""}, false, "", ""},
		{"all-zero trace id", map[string]string{"traceparent": "00-00000000000000000000000000000000-b7ad6b7169203331-01"}, false, "", ""},
		{"all-zero span id", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-0000000000000000-01"}, false, "", ""},
		{"version ff", map[string]string{"traceparent": "ff-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"}, false, "", ""},
		{"short trace id", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c8031-b7ad6b7169203331-01"}, false, "", ""},
		{"tracestate only", map[string]string{"tracestate": validTS}, false, "", ""},
		{"flags 02 kept", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-02"}, true,
			"00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-02", ""},
		{"flags 03 kept", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-03"}, true,
			"00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-03", ""},
		{"flags ff kept", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-ff"}, true,
			"00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-ff", ""},
		{"future version with extra field", map[string]string{"traceparent": "01-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01-extra"}, true,
			validTP, ""},
		{"future version bad separator", map[string]string{"traceparent": "01-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01x"}, false, "", ""},
		{"version 00 with extra field", map[string]string{"traceparent": validTP + "-extra"}, false, "", ""},
		{"upper-case hex", map[string]string{"traceparent": "00-0AF7651916CD43DD8448EB211C80319C-B7AD6B7169203331-01"}, false, "", ""},
		{"non-hex flags", map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-0g"}, false, "", ""},
		{"invalid tracestate dropped", map[string]string{"traceparent": validTP, "tracestate": "=="}, true, validTP, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := codec.Extract(xprop.NewHeader(tt.headers))
			assert.Equal(t, tt.present, tc.IsPresent())
			assert.Equal(t, tt.wantTP, tc.Traceparent())
			assert.Equal(t, tt.wantTS, tc.Tracestate())
		})
	}
}

func TestW3C_Extract_NilCarrier(t *testing.T) {
	assert.False(t, xprop.W3C().Extract(nil).IsPresent())
}

func TestW3C_InjectPresent(t *testing.T) {
	codec := xprop.W3C()
	tc := codec.Extract(xprop.Header{"traceparent": validTP, "tracestate": validTS})
	require.True(t, tc.IsPresent())

	h := xprop.Header{"traceparent": "00-11111111111111111111111111111111-2222222222222222-01", "x-other": "keep"}
	codec.Inject(h, tc)

	assert.Equal(t, validTP, h.Get("traceparent"))
	assert.Equal(t, validTS, h.Get("tracestate"))
	assert.Equal(t, "keep", h.Get("x-other"))
}

func TestW3C_InjectDropsStaleTracestate(t *testing.T) {
	codec := xprop.W3C()
	tc := codec.Extract(xprop.Header{"traceparent": validTP})

	h := xprop.Header{"tracestate": "stale=1"}
	codec.Inject(h, tc)

	assert.Equal(t, validTP, h.Get("traceparent"))
	_, ok := h["tracestate"]
	assert.False(t, ok)
}

func TestW3C_InjectAbsentDeletes(t *testing.T) {
	h := xprop.Header{"traceparent": validTP, "tracestate": validTS, "x-other": "keep"}
	xprop.W3C().Inject(h, xprop.Absent())

	assert.Equal(t, xprop.Header{"x-other": "keep"}, h)
}

func TestW3C_InjectNilCarrier(t *testing.T) {
	assert.NotPanics(t, func() { xprop.W3C().Inject(nil, xprop.Absent()) })
}

func TestW3C_RoundTrip(t *testing.T) {
	codec := xprop.W3C()
	for _, tp := range []string{
		validTP,
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-02",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-03",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-ff",
	} {
		src := xprop.Header{"traceparent": tp, "tracestate": validTS}
		tc := codec.Extract(src)

		dst := xprop.Header{}
		codec.Inject(dst, tc)
		assert.True(t, tc.Equal(codec.Extract(dst)), tp)
		assert.Equal(t, tp, dst.Get("traceparent"))
	}
}

func TestCarriers(t *testing.T) {
	codec := xprop.W3C()
	tc := codec.Extract(xprop.Header{"traceparent": validTP, "tracestate": validTS})

	t.Run("http.Header", func(t *testing.T) {
		h := http.Header{}
		c := xprop.HTTPHeader{H: h}
		codec.Inject(c, tc)
		assert.Equal(t, validTP, h.Get("Traceparent"))
		assert.True(t, tc.Equal(codec.Extract(c)))

		codec.Inject(c, xprop.Absent())
		assert.Empty(t, h)
	})

	t.Run("grpc metadata", func(t *testing.T) {
		md := metadata.MD{}
		c := xprop.MetadataCarrier{MD: md}
		codec.Inject(c, tc)
		assert.Equal(t, []string{validTP}, md.Get("traceparent"))
		assert.True(t, tc.Equal(codec.Extract(c)))

		codec.Inject(c, xprop.Absent())
		assert.Empty(t, md)
	})

	t.Run("nil backing maps", func(t *testing.T) {
		assert.NotPanics(t, func() {
			codec.Inject(xprop.HTTPHeader{}, tc)
			codec.Inject(xprop.MetadataCarrier{}, tc)
			codec.Inject(xprop.Header(nil), tc)
		})
		assert.False(t, codec.Extract(xprop.HTTPHeader{}).IsPresent())
		assert.False(t, codec.Extract(xprop.MetadataCarrier{}).IsPresent())
	})
}

func TestHeader(t *testing.T) {
	h := xprop.NewHeader(map[string]string{"X-Foo": "1"})
	assert.Equal(t, "1", h.Get("x-foo"))
	assert.Equal(t, "1", h.Get("X-FOO"))

	h.Set("X-Bar", "2")
	assert.ElementsMatch(t, []string{"x-foo", "x-bar"}, h.Keys())

	clone := h.Clone()
	h.Del("X-FOO")
	assert.Empty(t, h.Get("x-foo"))
	assert.Equal(t, "1", clone.Get("x-foo"))

	assert.Nil(t, xprop.Header(nil).Clone())
}

func TestCanonicalKey(t *testing.T) {
	key, ok := xprop.CanonicalKey(validTP)
	require.True(t, ok)
	assert.Equal(t, validTP, key)

	// 未知的更高版本以 00 版本规范化
	key, ok = xprop.CanonicalKey("01-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	require.True(t, ok)
	assert.Equal(t, validTP, key)

	for _, bad := range []string{"", "garbage", "00-0af7651916cd43dd8448eb211c80319c-0000000000000000-01"} {
		_, ok := xprop.CanonicalKey(bad)
		assert.False(t, ok, bad)
	}

	key, ok = xprop.KeyOf(xprop.Header{"traceparent": validTP})
	assert.True(t, ok)
	assert.Equal(t, validTP, key)

	_, ok = xprop.KeyOf(nil)
	assert.False(t, ok)
}

func TestTraceContext(t *testing.T) {
	assert.False(t, xprop.Absent().IsPresent())
	assert.Equal(t, "<absent>", xprop.Absent().String())
	assert.True(t, xprop.Absent().Equal(xprop.TraceContext{}))
	assert.False(t, xprop.FromSpan(nil).IsPresent())
	assert.False(t, xprop.Present(trace.SpanContext{}).IsPresent())

	tc := xprop.W3C().Extract(xprop.Header{"traceparent": validTP, "tracestate": validTS})
	assert.Equal(t, validTP+";"+validTS, tc.String())
	assert.False(t, tc.Equal(xprop.Absent()))
	assert.True(t, tc.SpanContext().IsRemote())

	ctx := xprop.ContextWith(nil, tc) //nolint:staticcheck // nil ctx 按 Background 处理
	assert.True(t, tc.Equal(xprop.FromContext(ctx)))

	cleared := xprop.ContextWith(ctx, xprop.Absent())
	assert.False(t, xprop.FromContext(cleared).IsPresent())
}
