package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"github.com/omeyang/xspan/pkg/observability/xlog"

	"golang.org/x/sync/errgroup"
)

// Group 并发运行多个任务，任一任务失败时取消其余任务。
//
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 ctx 在任一任务返回错误或 Cancel 时被取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

func (g *Group) logger() xlog.Logger {
	if g.opts.logger != nil {
		return g.opts.logger
	}
	return xlog.Default()
}

// Go 启动任务。fn 应在 ctx.Done() 后尽快返回。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并记录任务的启动与退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("task", name)}
		log := g.logger().With(attrs...)

		log.Debug(g.ctx, "task starting")
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(g.ctx, "task exited with error", xlog.Err(err))
		} else {
			log.Debug(g.ctx, "task stopped")
		}
		return err
	})
}

// Wait 等待全部任务结束。
//
// 任务因 Group 被取消而返回 context.Canceled 时，返回取消原因
// （如 *SignalError），没有显式原因则返回 nil。
// 任务自身返回的 context.Canceled（Group 未被取消）原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := g.explicitCause()

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() != nil {
			return cause
		}
		return err
	}
	if err == nil {
		return cause
	}
	return err
}

// explicitCause 返回 Cancel 设置的非 Canceled 原因。
func (g *Group) explicitCause() error {
	if g.causeCtx.Err() == nil {
		return nil
	}
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 取消全部任务，cause 由 Wait 返回。
// cause 不应包装 context.Canceled，否则会被当作普通取消过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 ctx。
func (g *Group) Context() context.Context {
	return g.ctx
}

// =============================================================================
// Run
// =============================================================================

// Run 运行任务并监听退出信号，收到信号时返回 *SignalError。
func Run(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, tasks...)
}

// RunWithOptions 与 Run 相同，支持选项。
func RunWithOptions(ctx context.Context, opts []Option, tasks ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			// signal.Notify 不传信号会订阅全部信号
			signals = DefaultSignals()
		}
		g.Go(g.watchSignals(signals))
	}
	for _, task := range tasks {
		g.Go(task)
	}
	return g.Wait()
}

func (g *Group) watchSignals(signals []os.Signal) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-testSigChan(ctx):
		case sig = <-sigCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		g.logger().Info(ctx, "received signal",
			slog.String("group", g.opts.name), slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	}
}

// testSigChanKey 测试通过 ctx 注入信号，避免向进程发送真实信号。
type testSigChanKey struct{}

// testSigChan 生产环境返回 nil（select 中永不就绪）。
func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}
