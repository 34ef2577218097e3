// Package logging 构造全局共用的 slog.Logger。
//
// 约定：日志只写 stderr（或调用方指定的 writer），stdout 留给结果输出。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options 描述 logger 的构造参数。
type Options struct {
	Level  string // debug/info/warn/error；为空时 info
	Format string // text/json；为空时 text
	Debug  bool   // true 时强制 debug 级别（对应 debug 偏好开关）
	Writer io.Writer
}

// New 按 Options 构造 logger。
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = slog.LevelDebug
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text", "console":
		return slog.New(slog.NewTextHandler(w, ho)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, ho)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// Discard 返回丢弃全部输出的 logger（测试与未配置时使用）。
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// ParseLevel 解析日志级别名；空串为 info。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", s)
	}
}
