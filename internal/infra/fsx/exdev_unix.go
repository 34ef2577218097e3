//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别跨文件系统 rename；*os.LinkError 通过 Unwrap 暴露 errno。
func isEXDEV(err error) bool { return errors.Is(err, syscall.EXDEV) }
