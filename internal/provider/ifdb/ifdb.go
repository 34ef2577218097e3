// Package ifdb 实现 Internet Fanedit Database（ifdb.fanedit.org）的 URL 约定与 HTML 解析。
package ifdb

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/field"
)

const DefaultBaseURL = "https://ifdb.fanedit.org/"

// 页面上的字段类名（字段/值容器约定见 internal/field）。
const (
	FieldReleaseDate   = "jrFaneditreleasedate"
	FieldEditor        = "jrFaneditorname"
	FieldTagline       = "jrTagline"
	FieldOriginalTitle = "jrOriginalmovietitle"
	FieldGenre         = "jrGenre"
	FieldFranchise     = "jrFranchise"
	FieldType          = "jrFanedittype"
	FieldSynopsis      = "jrBriefsynopsis"
)

const (
	selHeadline   = "h1.contentheading span[itemprop~=headline]"
	selName       = "h1.contentheading span[itemprop~=name]"
	selCompare    = "input.jrCheckListing"
	selMainImage  = "div.jrListingMainImage img"
	selRating     = "span.jrRatingValue > span:first-of-type"
	selListItem   = "div.jrListItem"
	selItemTitle  = "div.jrContentTitle > a"
	selItemThumb  = "div.jrListingThumbnail > a > img"
	listingPrefix = "jr-listing-title-"
	zeroRating    = "(0)"
)

var (
	listingWordRE = regexp.MustCompile(`(?i)listing`)
	nonDigitRE    = regexp.MustCompile(`[^\d]+`)
)

// Provider 实现 provider.Catalog。
type Provider struct {
	// BaseURL 允许指向镜像或测试服务器；为空时使用 DefaultBaseURL。
	BaseURL string
}

func (Provider) Name() string { return "ifdb" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/") + "/"
}

// SearchURL 返回按标题搜索的列表页地址（按字母序）。
func (p Provider) SearchURL(keywords string) string {
	return p.baseURL() + "fanedit-search/search-results/?query=all&scope=title&keywords=" +
		url.QueryEscape(keywords) + "&order=alpha"
}

// DetailURL 返回条目详情页地址。
func (p Provider) DetailURL(id string) string {
	return p.baseURL() + "?p=" + url.QueryEscape(strings.TrimSpace(id))
}

// ParseListing 把搜索结果页解析为候选列表。
//
// 两种形态：
// - 精确命中时站点直接跳转到详情页（headline 非空）：恰好产出一条候选
// - 否则每个 jrListItem 产出一条候选；字段可以为空，但候选不丢弃
func (p Provider) ParseListing(doc *goquery.Document) []domain.Candidate {
	if doc == nil {
		return nil
	}
	root := doc.Selection

	if field.Text(root, selHeadline) != "" {
		return []domain.Candidate{{
			ID:          listingID(root),
			Title:       detailTitle(root),
			ThumbURL:    p.mainImageURL(root),
			ReleaseDate: field.Singular(root, FieldReleaseDate),
		}}
	}

	items := root.Find(selListItem)
	out := make([]domain.Candidate, 0, items.Length())
	items.Each(func(_ int, it *goquery.Selection) {
		out = append(out, domain.Candidate{
			ID:          strings.ReplaceAll(field.Attr(it, selItemTitle+"[id]", "id"), listingPrefix, ""),
			Title:       itemTitle(it),
			ThumbURL:    p.resolve(field.Attr(it, selItemThumb, "src")),
			ReleaseDate: field.Singular(it, FieldReleaseDate),
		})
	})
	return out
}

// ParseDetail 把详情页映射为 domain.Detail（纯函数；不做网络请求）。
//
// 单值/列表字段统一走 field.Extract。评分与年份无法解析时返回 *ParseError。
func (p Provider) ParseDetail(doc *goquery.Document, pageURL string) (domain.Detail, error) {
	if doc == nil {
		return domain.Detail{}, errors.New("document 为空")
	}
	root := doc.Selection

	title := detailTitle(root)
	if title == "" {
		return domain.Detail{}, errors.New("标题为空（疑似返回了非详情页内容）")
	}

	rating, err := parseRating(field.Text(root, selRating))
	if err != nil {
		return domain.Detail{}, err
	}

	release := field.Singular(root, FieldReleaseDate)
	year, err := parseYear(release)
	if err != nil {
		return domain.Detail{}, err
	}

	return domain.Detail{
		ID:            listingID(root),
		Title:         title,
		Rating:        rating,
		Editor:        field.Singular(root, FieldEditor),
		Tagline:       field.Singular(root, FieldTagline),
		OriginalTitle: field.Extract(root, FieldOriginalTitle).Join(", "),
		Genres:        domain.NewSet(field.Extract(root, FieldGenre).Values()...),
		Collections:   domain.NewSet(field.Extract(root, FieldFranchise).Values()...),
		Tags:          domain.NewSet(field.Extract(root, FieldType).Values()...),
		ReleaseDate:   release,
		Year:          year,
		Summary:       strings.TrimSpace(root.Find(field.Container(FieldSynopsis)).First().Text()),
		PosterURL:     p.mainImageURL(root),
		Website:       strings.TrimSpace(pageURL),
	}, nil
}

// ParseError 表示数值字段（评分/年份）在约定的清洗后仍无法解析。
type ParseError struct {
	Field string // "rating" / "year"
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("字段 %s 无法解析：%q：%v", e.Field, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseRating：字面量 "(0)" 视为 0；否则按浮点数解析，且必须落在 [0,10]。
func parseRating(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == zeroRating {
		return 0, nil
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Field: "rating", Raw: raw, Err: err}
	}
	if !(r >= 0 && r <= 10) {
		return 0, &ParseError{Field: "rating", Raw: raw, Err: errors.New("超出 [0,10]")}
	}
	return r, nil
}

// parseYear 去掉全部非数字字符后按整数解析。
//
// 注意：多段数字会被直接拼接（"03/2014" => 32014）。站点该字段通常只有年份；
// 这里保持字面规则，不做“聪明猜测”。
func parseYear(raw string) (int, error) {
	digits := nonDigitRE.ReplaceAllString(raw, "")
	y, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &ParseError{Field: "year", Raw: raw, Err: err}
	}
	return y, nil
}

// detailTitle 读取详情页标题：优先 itemprop=name，回退 headline。
// itemTitle 取标题区第一个有文字的链接（图标链接没有文字）。
func itemTitle(it *goquery.Selection) string {
	var title string
	it.Find(selItemTitle).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		title = strings.TrimSpace(a.Text())
		return title == ""
	})
	return title
}

func detailTitle(root *goquery.Selection) string {
	if t := field.Text(root, selName); t != "" {
		return t
	}
	return field.Text(root, selHeadline)
}

// listingID 从隐藏的“对比”复选框读取条目 id（data-listingid 去掉 "listing" 字样）。
func listingID(root *goquery.Selection) string {
	raw := field.Attr(root, selCompare, "data-listingid")
	return strings.TrimSpace(listingWordRE.ReplaceAllString(raw, ""))
}

func (p Provider) mainImageURL(root *goquery.Selection) string {
	return p.resolve(field.Attr(root, selMainImage, "src"))
}

func (p Provider) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(p.baseURL())
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
