package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/IFDB/internal/infra/fsx"
)

// Store 提供 <root>/pages/ 下的页面缓存读写（按 URL 的 sha256 命名）。
//
// 约束：
// - ReadOnly=true 时只允许读
// - 超过 TTL 的文件视为未命中（不主动删除）
type Store struct {
	Root     string
	ReadOnly bool
	TTL      time.Duration // <=0 表示永不过期

	now func() time.Time
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool, ttl time.Duration) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
		TTL:      ttl,
		now:      time.Now,
	}
}

// PagePath 返回 URL 对应缓存文件的绝对路径。
func (s Store) PagePath(u string) (string, error) {
	name, err := pageName(u)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "pages", name), nil
}

// ReadPage 读取缓存；不存在或已过期返回 ok=false（不是错误）。
func (s Store) ReadPage(u string) ([]byte, bool, error) {
	path, err := s.PagePath(u)
	if err != nil {
		return nil, false, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if s.expired(fi.ModTime()) {
		return nil, false, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WritePage(u string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	name, err := pageName(u)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Join(s.Root, "pages"), name, html)
}

func (s Store) expired(mod time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().Sub(mod) > s.TTL
}

func pageName(u string) (string, error) {
	u = strings.TrimSpace(u)
	if u == "" {
		return "", fmt.Errorf("url 不能为空")
	}
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:]) + ".html", nil
}
