package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 配置变更回调。err 非 nil 表示重载失败，此时 cfg 保持旧值。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视器选项。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watcher 配置文件监视器。
type Watcher struct {
	cfg      *koanfConfig
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// Watch 创建配置文件监视器。调用 Run 开始监视。
//
// 监视文件所在目录而非文件本身：编辑器保存时可能先删除再创建，
// 直接监视文件会丢失后续事件。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported config type %T", ErrNotFileBacked, cfg)
	}
	if kc.path == "" {
		return nil, ErrNotFileBacked
	}

	o := &watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(kc.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch directory %s: %w", dir, err), fsw.Close())
	}

	return &Watcher{
		cfg:      kc,
		fs:       fsw,
		callback: callback,
		debounce: o.debounce,
	}, nil
}

// Run 监视直到 ctx 取消，返回 nil；底层 watcher 异常关闭时返回错误。
// Run 返回时释放 fsnotify 资源并取消未触发的重载，只能调用一次。
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	filename := filepath.Base(w.cfg.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("xconf: watcher events closed")
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// Write 直接修改；Create/Rename 对应原子替换
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("xconf: watcher errors closed")
			}
			if w.callback != nil {
				w.callback(w.cfg, fmt.Errorf("xconf: watch error: %w", err))
			}
		}
	}
}

// schedule 重置防抖定时器。
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done {
		return
	}

	err := w.cfg.Reload()
	if w.callback != nil {
		w.callback(w.cfg, err)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.done = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	_ = w.fs.Close()
}
