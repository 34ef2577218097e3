// Package agent 是宿主入口：Search 把模糊标题解析成排好序的候选，
// Update 把某个候选的详情页合并进宿主持有的记录。
//
// 约束：
// - 网络、缓存与限速全部委托给注入的 fetcher
// - 偏好在每次调用开始时读取一次
// - 海报失败只记 warn 日志，不影响 Update 结果
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/IFDB/internal/config"
	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/infra/imgx"
	"github.com/John-Robertt/IFDB/internal/provider"
	"github.com/John-Robertt/IFDB/internal/rank"
	"github.com/John-Robertt/IFDB/internal/title"
)

// Version 在每次 Search 时写入日志，便于对照问题报告。
const Version = "1.0.3"

// DocumentFetcher 取回并解析 HTML 页面。
type DocumentFetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// BytesFetcher 取回原始字节（海报）。
type BytesFetcher interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// Options 描述 Agent 的依赖。Pages 与 Catalog 必填；其余为空时使用默认值。
type Options struct {
	Catalog provider.Catalog
	Pages   DocumentFetcher
	Images  BytesFetcher // 为空时不下载海报

	Scores rank.Config      // 零值时使用 rank.DefaultConfig
	Titles *title.Registry  // nil 时使用 title.DefaultRegistry
	Prefs  func() config.Prefs
	Logger *slog.Logger
}

type Agent struct {
	catalog provider.Catalog
	pages   DocumentFetcher
	images  BytesFetcher
	scorer  rank.Scorer
	titles  title.Registry
	prefs   func() config.Prefs
	log     *slog.Logger
}

func New(opts Options) (*Agent, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog 不能为空")
	}
	if opts.Pages == nil {
		return nil, fmt.Errorf("page fetcher 不能为空")
	}
	scores := opts.Scores
	if scores == (rank.Config{}) {
		scores = rank.DefaultConfig()
	}
	titles := title.DefaultRegistry()
	if opts.Titles != nil {
		titles = *opts.Titles
	}
	prefs := opts.Prefs
	if prefs == nil {
		prefs = func() config.Prefs { return config.Prefs{} }
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Agent{
		catalog: opts.Catalog,
		pages:   opts.Pages,
		images:  opts.Images,
		scorer:  rank.New(scores),
		titles:  titles,
		prefs:   prefs,
		log:     log.With("provider", opts.Catalog.Name()),
	}, nil
}

// Search 查询目录站点并返回按相似度排好序的候选。
//
// 没有候选通过过滤时返回 NoResults=true 与 nil error；
// 只有抓取或解析文档失败才返回 error（*provider.Error）。
func (a *Agent) Search(ctx context.Context, name string, year int, manual bool) (domain.SearchOutcome, error) {
	log := a.logger()
	q := domain.NewQuery(name, year)

	log.Debug("agent version", "version", Version)
	if q.HasYear() {
		log.Debug("search", "name", q.Name, "year", q.Year, "manual", manual)
	} else {
		log.Debug("search", "name", q.Name, "manual", manual)
	}

	keywords := StripDiacritics(q.Name)
	if keywords == "" {
		keywords = q.Name
	}
	u := a.catalog.SearchURL(keywords)
	out := domain.SearchOutcome{Query: q, Manual: manual, URL: u}

	doc, err := a.pages.Document(ctx, u)
	if err != nil {
		return out, &provider.Error{Provider: a.catalog.Name(), Stage: provider.StageFetch, URL: u, Err: err}
	}

	cands := a.catalog.ParseListing(doc)
	out.Found = len(cands)
	log.Debug("listing parsed", "found", len(cands))

	ranked, ok := a.scorer.Rank(cands, q.Name, a.titles.ShortenAny)
	if !ok {
		log.Debug("no results", "query", keywords)
		out.NoResults = true
		return out, nil
	}
	out.Results = a.scorer.Surface(ranked, manual)
	for _, r := range out.Results {
		log.Debug("candidate", "id", r.ID, "name", r.Name, "score", r.Score)
	}
	return out, nil
}

// Update 抓取 id 的详情页并按合并规则写入 rec。
//
// 抓取或解析失败时返回 *provider.Error，rec 保持不变。
// 海报 URL 已登记时不再下载；下载或校验失败只记日志。
func (a *Agent) Update(ctx context.Context, id string, rec *domain.FaneditMeta) error {
	if rec == nil {
		return fmt.Errorf("record 不能为空")
	}
	prefs := a.prefs()
	log := a.loggerFor(prefs).With("id", id)

	u := a.catalog.DetailURL(id)
	doc, err := a.pages.Document(ctx, u)
	if err != nil {
		log.Error("fetch detail failed", "url", u, "error", err)
		return &provider.Error{Provider: a.catalog.Name(), Stage: provider.StageFetch, ID: id, URL: u, Err: err}
	}

	d, err := a.catalog.ParseDetail(doc, u)
	if err != nil {
		log.Error("parse detail failed", "url", u, "error", err)
		return &provider.Error{Provider: a.catalog.Name(), Stage: provider.StageParse, ID: id, URL: u, Err: err}
	}
	d.ID = id
	d.Title = a.titles.ShortenIfEnabled(d.Title, prefs.Flags())

	rec.Apply(d)
	log.Debug("detail applied", "title", rec.Title, "year", rec.Year)

	a.fetchPoster(ctx, log, rec, d.PosterURL)
	return nil
}

func (a *Agent) fetchPoster(ctx context.Context, log *slog.Logger, rec *domain.FaneditMeta, u string) {
	switch {
	case a.images == nil, strings.TrimSpace(u) == "":
		return
	case rec.HasPoster(u):
		log.Debug("poster already present", "url", u)
		return
	}

	b, err := a.images.Bytes(ctx, u)
	if err != nil {
		log.Warn("poster fetch failed", "url", u, "error", err)
		return
	}
	info, err := imgx.Inspect(b)
	if err != nil {
		log.Warn("poster is not a usable image", "url", u, "error", err)
		return
	}
	rec.AddPoster(domain.Poster{URL: u, Data: b, Format: info.Format, Width: info.Width, Height: info.Height})
}

// logger 读取一次偏好：debug 关闭时丢弃 debug 级日志。
func (a *Agent) logger() *slog.Logger { return a.loggerFor(a.prefs()) }

func (a *Agent) loggerFor(p config.Prefs) *slog.Logger {
	if p.Debug {
		return a.log
	}
	return slog.New(minLevel{Handler: a.log.Handler(), min: slog.LevelInfo})
}

// minLevel 在底层 handler 之上再加一道级别下限。
type minLevel struct {
	slog.Handler
	min slog.Level
}

func (h minLevel) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.min && h.Handler.Enabled(ctx, l)
}

func (h minLevel) WithAttrs(attrs []slog.Attr) slog.Handler {
	return minLevel{Handler: h.Handler.WithAttrs(attrs), min: h.min}
}

func (h minLevel) WithGroup(name string) slog.Handler {
	return minLevel{Handler: h.Handler.WithGroup(name), min: h.min}
}

// StripDiacritics 去掉组合附加符号（"Amélie" -> "Amelie"），并去掉首尾空白。
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
