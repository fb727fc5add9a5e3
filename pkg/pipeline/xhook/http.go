package xhook

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/omeyang/xspan/pkg/observability/xprop"
	"github.com/omeyang/xspan/pkg/observability/xspan"
)

// HTTPMiddleware 返回接入 engine 的 HTTP 中间件。
//
// ingress 作用于入站 http.Request 的头部；egress 在响应头刷出之前
// （首次 WriteHeader/Write，或 handler 返回时）执行，使响应携带恢复后的上下文。
func HTTPMiddleware(engine *xspan.Engine, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	service := cfg.service
	if service == "" {
		service = DefaultHTTPServiceName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !engine.Ready() {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header == nil {
				r.Header = make(http.Header)
			}

			req := &xspan.Request{
				Service:   service,
				Operation: cfg.operation(r),
				Headers:   xprop.HTTPHeader{H: r.Header},
			}
			resp := &xspan.Response{Headers: xprop.HTTPHeader{H: w.Header()}}

			ctx := engine.Begin(r.Context(), req, resp)
			rw := &responseWriter{ResponseWriter: w}
			rw.egress = func() { engine.End(ctx, req, resp) }
			// handler panic（如 http.ErrAbortHandler）时也要取出在途 span。
			defer rw.finish()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// responseWriter 在响应头刷出前执行一次 egress。
type responseWriter struct {
	http.ResponseWriter
	egress func()
	once   sync.Once
}

func (w *responseWriter) finish() {
	w.once.Do(w.egress)
}

func (w *responseWriter) WriteHeader(code int) {
	w.finish()
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.finish()
	return w.ResponseWriter.Write(b)
}

// Flush 实现 http.Flusher。
func (w *responseWriter) Flush() {
	w.finish()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack 实现 http.Hijacker。连接被接管后不再有响应头，egress 立即执行。
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.finish()
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errHijackUnsupported
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter。
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

var errHijackUnsupported = errors.New("xhook: underlying ResponseWriter does not support hijacking")
