package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gocache "github.com/patrickmn/go-cache"

	"github.com/John-Robertt/IFDB/internal/infra/cache"
	"github.com/John-Robertt/IFDB/internal/provider"
)

// DefaultCacheTTL 是响应缓存的默认有效期（一周）。
const DefaultCacheTTL = 7 * 24 * time.Hour

const maxBodyBytes = 32 << 20

// FetcherOptions 描述 Fetcher 的构造参数。
type FetcherOptions struct {
	PageClient  *http.Client
	ImageClient *http.Client // 为空时复用 PageClient

	// Delay 是每次真正发出网络请求前的固定等待（命中缓存时不等待）。
	Delay time.Duration

	// CacheTTL <= 0 时使用 DefaultCacheTTL。
	CacheTTL time.Duration

	// Disk 为可选的页面落盘缓存；nil 表示只用进程内缓存。
	Disk *cache.Store

	Logger *slog.Logger
}

// Fetcher 负责“取文档 / 取字节”：固定延迟 + 进程级 TTL 缓存（go-cache，并发安全）。
//
// 页面（HTML）额外可落盘；图片只做进程内缓存。
type Fetcher struct {
	page  *http.Client
	image *http.Client
	delay time.Duration
	mem   *gocache.Cache
	disk  *cache.Store
	log   *slog.Logger
}

func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	if opts.PageClient == nil {
		return nil, errors.New("page client 不能为空")
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	image := opts.ImageClient
	if image == nil {
		image = opts.PageClient
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		page:  opts.PageClient,
		image: image,
		delay: opts.Delay,
		mem:   gocache.New(ttl, 10*time.Minute),
		disk:  opts.Disk,
		log:   log,
	}, nil
}

// Document 取回 u 并解析为 goquery 文档。
func (f *Fetcher) Document(ctx context.Context, u string) (*goquery.Document, error) {
	b, err := f.pageBytes(ctx, u)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(b))
}

// Bytes 取回 u 的原始内容（用于海报）。
func (f *Fetcher) Bytes(ctx context.Context, u string) ([]byte, error) {
	key := "bytes:" + u
	if v, ok := f.mem.Get(key); ok {
		return v.([]byte), nil
	}
	b, err := f.get(ctx, f.image, u)
	if err != nil {
		return nil, err
	}
	f.mem.SetDefault(key, b)
	return b, nil
}

func (f *Fetcher) pageBytes(ctx context.Context, u string) ([]byte, error) {
	key := "page:" + u
	if v, ok := f.mem.Get(key); ok {
		f.log.Debug("page cache hit", "url", u, "tier", "memory")
		return v.([]byte), nil
	}

	if f.disk != nil {
		b, ok, err := f.disk.ReadPage(u)
		if err != nil {
			f.log.Warn("read page cache failed", "url", u, "error", err)
		} else if ok {
			f.log.Debug("page cache hit", "url", u, "tier", "disk")
			f.mem.SetDefault(key, b)
			return b, nil
		}
	}

	b, err := f.get(ctx, f.page, u)
	if err != nil {
		return nil, err
	}
	f.mem.SetDefault(key, b)
	if f.disk != nil {
		if err := f.disk.WritePage(u, b); err != nil && !errors.Is(err, cache.ErrReadOnly) {
			f.log.Warn("write page cache failed", "url", u, "error", err)
		}
	}
	return b, nil
}

func (f *Fetcher) get(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if err := sleep(ctx, f.delay); err != nil {
		return nil, err
	}

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	f.log.Debug("fetched", "url", u, "status", resp.StatusCode, "bytes", len(b), "took", time.Since(started))

	if isChallenge(resp.StatusCode, b) {
		return nil, &provider.BlockedError{URL: u, Reason: "cf-challenge"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}

// isChallenge 识别 Cloudflare 的人机验证页（403/503 + challenge 标记）。
func isChallenge(status int, body []byte) bool {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable {
		return false
	}
	s := string(body)
	return strings.Contains(s, "cf-chl") || strings.Contains(s, "challenge-platform")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
