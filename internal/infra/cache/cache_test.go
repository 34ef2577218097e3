package cache

import (
	"errors"
	"os"
	"testing"
	"time"
)

const pageURL = "https://ifdb.test/?p=42"

func TestStore_ReadWritePage(t *testing.T) {
	s := New(t.TempDir(), false, time.Hour)
	if err := s.WritePage(pageURL, []byte("<html/>")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, ok, err := s.ReadPage(pageURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ok {
		t.Fatalf("期望命中缓存，但 ok=false")
	}
	if string(b) != "<html/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	if _, ok, _ := s.ReadPage(pageURL + "&x=1"); ok {
		t.Fatalf("不同 URL 不应命中")
	}
}

func TestStore_ExpiredIsMiss(t *testing.T) {
	s := New(t.TempDir(), false, time.Hour)
	if err := s.WritePage(pageURL, []byte("x")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok, err := s.ReadPage(pageURL); ok || err != nil {
		t.Fatalf("过期条目应视为未命中：ok=%v err=%v", ok, err)
	}

	s.TTL = 0
	if _, ok, _ := s.ReadPage(pageURL); !ok {
		t.Fatalf("TTL<=0 时不应过期")
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true, time.Hour)
	if err := s.WritePage(pageURL, []byte("x")); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}

	path, err := s.PagePath(pageURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("期望文件不存在，但 Stat err=%v", err)
	}
}

func TestStore_EmptyURL(t *testing.T) {
	s := New(t.TempDir(), false, 0)
	if _, err := s.PagePath(" "); err == nil {
		t.Fatalf("空 URL 应报错")
	}
}
