// xspand 是 xspan 关联引擎的参考宿主进程。
//
// 用法:
//
//	xspand serve --config <file>
//	xspand version
//
// serve 启动 HTTP 服务，/echo/{operation} 经过 xspan 中间件：入站请求的
// traceparent 被替换为新 span 的上下文，响应则恢复为调用方原来的上下文。
// Prometheus 指标暴露在 metrics.addr 的 /metrics。
//
// 修改配置文件中的 log.level 后无需重启即可生效。
//
// 退出码:
//
//	0: 正常退出（包括收到 SIGINT/SIGTERM）
//	1: 运行期错误
//	2: 参数或配置错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xspan/pkg/observability/xlog"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// configError 配置无法加载或校验失败，对应退出码 2。
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// createApp 创建 CLI 应用。
func createApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:            "xspand",
		Usage:           "xspan 关联引擎参考服务",
		Version:         versionString(),
		Writer:          stdout,
		Commands:        []*cli.Command{createServeCommand(stdout), createVersionCommand(stdout)},
		Authors:         []any{"XSpan Team"},
		HideHelpCommand: true,
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func createServeCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "配置文件路径（yaml/json）",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, handle, err := loadConfig(cmd.String("config"))
			if err != nil {
				return &configError{err: err}
			}
			logger, cleanup, err := buildLogger(cfg.Log)
			if err != nil {
				return &configError{err: fmt.Errorf("build logger: %w", err)}
			}
			defer func() { _ = cleanup() }()
			xlog.SetDefault(logger)

			return serve(ctx, cfg, handle, logger, stdout)
		},
	}
}

func createVersionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "打印版本信息",
		Action: func(context.Context, *cli.Command) error {
			_, err := fmt.Fprintf(stdout, "xspand %s\n", versionString())
			return err
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout)
	app.ErrWriter = stderr

	if err := app.Run(ctx, args); err != nil {
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(stderr, "配置错误: %v\n", cfgErr)
			return 2
		}
		if isUsageError(err) {
			fmt.Fprintf(stderr, "参数错误: %v\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// isUsageError 识别 CLI 框架产生的参数错误（缺少必需 flag、未知 flag）。
func isUsageError(err error) bool {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"Required flag", "flag provided but not defined", "invalid value", "No help topic"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
