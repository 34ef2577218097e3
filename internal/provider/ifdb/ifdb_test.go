package ifdb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/IFDB/internal/domain"
)

var testProvider = Provider{BaseURL: "https://ifdb.test"}

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("解析 fixture 失败：%v", err)
	}
	return doc
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("解析 HTML 失败：%v", err)
	}
	return doc
}

func TestURLs(t *testing.T) {
	if got, want := testProvider.SearchURL("Star Wars: Ep IV"), "https://ifdb.test/fanedit-search/search-results/?query=all&scope=title&keywords=Star+Wars%3A+Ep+IV&order=alpha"; got != want {
		t.Fatalf("SearchURL=%q，期望 %q", got, want)
	}
	if got, want := testProvider.DetailURL(" 42 "), "https://ifdb.test/?p=42"; got != want {
		t.Fatalf("DetailURL=%q，期望 %q", got, want)
	}
	if got := (Provider{}).DetailURL("1"); got != DefaultBaseURL+"?p=1" {
		t.Fatalf("默认 BaseURL 不符合预期：%q", got)
	}
}

func TestParseListing_ListShape(t *testing.T) {
	got := testProvider.ParseListing(loadFixture(t, "listing.html"))

	want := []domain.Candidate{
		{ID: "42", Title: "Star Wars Episode IV: Despecialized Edition", ThumbURL: "https://ifdb.fanedit.org/media/thumb/42.jpg", ReleaseDate: "2014"},
		{ID: "77", Title: "The Lord of the Rings: The Fellowship of the Ring - Purist Edit", ThumbURL: "https://ifdb.test/media/thumb/77.jpg", ReleaseDate: "2010"},
		// 缺失缩略图与日期：字段为空，但候选必须保留。
		{ID: "91", Title: "Star Wars Episode IV Revisited"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("候选不符合预期 (-want +got):\n%s", diff)
	}
}

func TestParseListing_TitleSkipsEmptyLinks(t *testing.T) {
	doc := parseHTML(t, `<html><body>
<div class="jrListItem">
  <div class="jrContentTitle"><a href="/x"><img src="/icon.png"></a> <a id="jr-listing-title-7" href="/?p=7"> Hook: Pan Cut </a></div>
</div>
</body></html>`)

	got := testProvider.ParseListing(doc)
	if diff := cmp.Diff([]domain.Candidate{{ID: "7", Title: "Hook: Pan Cut"}}, got); diff != "" {
		t.Fatalf("应取第一个有文字的标题链接 (-want +got):\n%s", diff)
	}
}

func TestParseListing_EmptyListing(t *testing.T) {
	got := testProvider.ParseListing(parseHTML(t, `<html><body><div class="jrResults"></div></body></html>`))
	if len(got) != 0 {
		t.Fatalf("期望 0 条候选，实际 %d", len(got))
	}
}

func TestParseListing_RedirectShape(t *testing.T) {
	got := testProvider.ParseListing(loadFixture(t, "detail.html"))

	want := []domain.Candidate{{
		ID:          "42",
		Title:       "Star Wars Episode IV: Despecialized Edition",
		ThumbURL:    "https://ifdb.test/media/reviews/photos/thumbnail/640x640s/42.jpg",
		ReleaseDate: "2014",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("跳转形态候选不符合预期 (-want +got):\n%s", diff)
	}
}

func TestParseDetail_Fixture(t *testing.T) {
	d, err := testProvider.ParseDetail(loadFixture(t, "detail.html"), " https://ifdb.test/?p=42 ")
	if err != nil {
		t.Fatalf("ParseDetail 失败：%v", err)
	}

	if d.ID != "42" || d.Title != "Star Wars Episode IV: Despecialized Edition" {
		t.Fatalf("id/title 不符合预期：%q %q", d.ID, d.Title)
	}
	if d.Rating != 8.7 || d.Editor != "Harmy" || d.Tagline != "The way you remember it." {
		t.Fatalf("rating/editor/tagline 不符合预期：%v %q %q", d.Rating, d.Editor, d.Tagline)
	}
	if d.OriginalTitle != "Star Wars, Star Wars: Special Edition" {
		t.Fatalf("original_title 不符合预期：%q", d.OriginalTitle)
	}
	// 列表形态：三个 li => 三个 genre。
	if diff := cmp.Diff([]string{"Action", "Adventure", "Sci-Fi"}, d.Genres.Items()); diff != "" {
		t.Fatalf("genres 不符合预期 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Star Wars"}, d.Collections.Items()); diff != "" {
		t.Fatalf("collections 不符合预期 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"FanPreservation"}, d.Tags.Items()); diff != "" {
		t.Fatalf("tags 不符合预期 (-want +got):\n%s", diff)
	}
	if d.Year != 2014 || d.ReleaseDate != "2014" {
		t.Fatalf("year 不符合预期：%d %q", d.Year, d.ReleaseDate)
	}
	if d.Summary != "A restoration of the original 1977 theatrical cut." {
		t.Fatalf("summary 不符合预期：%q", d.Summary)
	}
	if d.PosterURL != "https://ifdb.test/media/reviews/photos/thumbnail/640x640s/42.jpg" {
		t.Fatalf("poster 不符合预期：%q", d.PosterURL)
	}
	if d.Website != "https://ifdb.test/?p=42" {
		t.Fatalf("website 不符合预期：%q", d.Website)
	}
}

func TestRedirectCandidateMatchesDetail(t *testing.T) {
	doc := loadFixture(t, "detail.html")

	cands := testProvider.ParseListing(doc)
	if len(cands) != 1 {
		t.Fatalf("期望 1 条候选，实际 %d", len(cands))
	}
	d, err := testProvider.ParseDetail(doc, "")
	if err != nil {
		t.Fatalf("ParseDetail 失败：%v", err)
	}

	c := cands[0]
	if c.ID != d.ID || c.Title != d.Title || c.ThumbURL != d.PosterURL || c.ReleaseDate != d.ReleaseDate {
		t.Fatalf("两条路径的重叠字段不一致：candidate=%+v detail=%+v", c, d)
	}
}

const detailTmpl = `<html><body>
<h1 class="contentheading"><span itemprop="name">T</span></h1>
<span class="jrRatingValue"><span>{{rating}}</span></span>
<div class="jrFaneditreleasedate"><div class="jrFieldValue"><a>{{date}}</a></div></div>
<div class="jrFanedittype"><div class="jrFieldValue"><ul><li><a>A</a></li><li><a>B</a></li><li><a>C</a></li></ul></div></div>
</body></html>`

func detailDoc(t *testing.T, rating, date string) *goquery.Document {
	t.Helper()
	html := strings.NewReplacer("{{rating}}", rating, "{{date}}", date).Replace(detailTmpl)
	return parseHTML(t, html)
}

func TestParseDetail_NumericFields(t *testing.T) {
	cases := []struct {
		rating, date string
		wantRating   float64
		wantYear     int
	}{
		{"(0)", "2014", 0, 2014},
		{" 7.25 ", "Released 2009", 7.25, 2009},
		// 字面规则：去掉全部非数字后整体解析（已知局限）。
		{"10", "Released: 03/2014", 10, 32014},
		{"0", "March 3, 2014", 0, 32014},
	}
	for _, c := range cases {
		d, err := testProvider.ParseDetail(detailDoc(t, c.rating, c.date), "")
		if err != nil {
			t.Fatalf("rating=%q date=%q 不期望错误：%v", c.rating, c.date, err)
		}
		if d.Rating != c.wantRating || d.Year != c.wantYear {
			t.Fatalf("rating=%q date=%q => %v/%d，期望 %v/%d", c.rating, c.date, d.Rating, d.Year, c.wantRating, c.wantYear)
		}
		// 缺失的 genre/franchise 字段不影响结果；三个 li => 三个 tag。
		if d.Tags.Len() != 3 || d.Genres.Len() != 0 || d.Editor != "" {
			t.Fatalf("字段形态处理错误：%+v", d)
		}
	}
}

func TestParseDetail_MalformedNumbers(t *testing.T) {
	cases := []struct {
		rating, date, field string
	}{
		{"n/a", "2014", "rating"},
		{"", "2014", "rating"},
		{"11", "2014", "rating"},
		{"NaN", "2014", "rating"},
		{"5", "unknown", "year"},
		{"5", "", "year"},
	}
	for _, c := range cases {
		_, err := testProvider.ParseDetail(detailDoc(t, c.rating, c.date), "")
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("rating=%q date=%q 期望 ParseError，实际 %v", c.rating, c.date, err)
		}
		if pe.Field != c.field {
			t.Fatalf("rating=%q date=%q 期望字段 %s，实际 %s", c.rating, c.date, c.field, pe.Field)
		}
	}
}

func TestParseDetail_NotADetailPage(t *testing.T) {
	if _, err := testProvider.ParseDetail(loadFixture(t, "listing.html"), ""); err == nil {
		t.Fatalf("列表页不应被当成详情页解析成功")
	}
	if _, err := testProvider.ParseDetail(nil, ""); err == nil {
		t.Fatalf("nil document 应返回错误")
	}
}
