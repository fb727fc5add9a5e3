package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而退出。
	ErrSignal = errors.New("xrun: received signal")

	// ErrNilFunc 任务函数为 nil。
	ErrNilFunc = errors.New("xrun: nil task function")

	// ErrNilServer HTTPServer 传入了 nil server。
	ErrNilServer = errors.New("xrun: nil server")

	// ErrInvalidInterval Ticker 间隔必须为正数。
	ErrInvalidInterval = errors.New("xrun: interval must be positive")

	// ErrInvalidDelay Timer 延迟不能为负数。
	ErrInvalidDelay = errors.New("xrun: delay must not be negative")
)

// SignalError 携带触发退出的信号。
//
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    fmt.Println(sigErr.Signal)
//	}
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "xrun: received signal <nil>"
	}
	return fmt.Sprintf("xrun: received signal %s", e.Signal)
}

// Unwrap 使 errors.Is(err, ErrSignal) 成立。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
