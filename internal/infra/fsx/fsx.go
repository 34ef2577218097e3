package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// renameFunc 可在测试中替换，用来模拟 EXDEV / 权限错误。
var renameFunc = os.Rename

// Mode 决定目标文件已存在时的行为。
type Mode int

const (
	Replace     Mode = iota // 覆盖（缓存、数据库旁的状态文件）
	NoOverwrite             // 已存在则返回 os.ErrExist（用户可见的 sidecar）
)

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示跨盘（EXDEV）导致的 rename 失败。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘 rename 失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 封装 os.Rename，并把 EXDEV 显式标记为 CrossDeviceError。
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// WriteFileAtomicReplace 在 dir 下原子写入 name，已存在则覆盖。
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	return WriteFile(dir, name, data, Replace)
}

// WriteFile 在 dir 下原子写入 name（同目录临时文件 + rename）。
//
// 临时文件以 '.' 开头；任何一步失败都会清理临时文件，且不会留下半个目标文件。
func WriteFile(dir, name string, data []byte, mode Mode) error {
	dir = filepath.Clean(dir)
	dst := filepath.Join(dir, name)

	if fi, err := os.Lstat(dst); err == nil {
		if fi.IsDir() {
			return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
		}
		if !fi.Mode().IsRegular() {
			return &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
		}
		if mode == NoOverwrite {
			return os.ErrExist
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := Rename(tmpName, dst); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

// syncDir 是 best-effort：目录 fsync 在不同平台上语义差异很大。
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
