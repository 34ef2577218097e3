package domain

import "strings"

// Detail 是 Detail Mapper 从单个详情页得到的结果（纯数据，不含网络产物）。
//
// 约束：
// - Editor 恰好一个（可能为空串，表示页面缺失该字段）
// - OriginalTitle 是多个原片名按页面顺序以 ", " 拼接的结果
// - PosterURL 只记录地址；图片内容由调用方决定是否下载
type Detail struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Rating        float64 `json:"rating"`
	Editor        string  `json:"editor"`
	Tagline       string  `json:"tagline"`
	OriginalTitle string  `json:"original_title"`
	Genres        Set     `json:"genres"`
	Collections   Set     `json:"collections"`
	Tags          Set     `json:"tags"`
	ReleaseDate   string  `json:"release_date"`
	Year          int     `json:"year"`
	Summary       string  `json:"summary"`
	PosterURL     string  `json:"poster_url"`
	Website       string  `json:"website"`
}

// Poster 是按来源 URL 登记的海报。Data 不进 JSON，由记录库单独保存。
type Poster struct {
	URL    string `json:"url"`
	Data   []byte `json:"-"`
	Format string `json:"format"` // "jpeg" / "png" / "gif"
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// FaneditMeta 是宿主持有的元数据记录，可跨多次 Update 累积。
type FaneditMeta struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Rating        float64 `json:"rating"`
	// Editors 每次 Update 整体替换为页面上的唯一剪辑者；
	// 页面缺失该字段时保留原值（新记录因此可能为空）。
	Editors       Set     `json:"editors"`
	Tagline       string  `json:"tagline"`
	OriginalTitle string  `json:"original_title"`
	Genres        Set     `json:"genres"`
	Collections   Set     `json:"collections"`
	Tags          Set     `json:"tags"`
	Year          int     `json:"year"`
	Summary       string  `json:"summary"`
	Website       string  `json:"website"`

	Posters map[string]Poster `json:"posters"`
}

// Apply 把一次详情解析结果合并进记录：
// - 标量字段直接覆盖
// - Editors 整体替换（新值为空时保留原值）
// - Genres / Collections / Tags 取并集
func (m *FaneditMeta) Apply(d Detail) {
	if d.ID != "" {
		m.ID = d.ID
	}
	m.Title = d.Title
	m.Rating = d.Rating
	if strings.TrimSpace(d.Editor) != "" {
		m.Editors.Clear()
		m.Editors.Add(d.Editor)
	}
	m.Tagline = d.Tagline
	m.OriginalTitle = d.OriginalTitle
	m.Genres.Union(d.Genres)
	m.Collections.Union(d.Collections)
	m.Tags.Union(d.Tags)
	m.Year = d.Year
	m.Summary = d.Summary
	if d.Website != "" {
		m.Website = d.Website
	}
}

// HasPoster 判断该 URL 的海报是否已登记且带有图片内容。
// 只有元信息的条目视为缺失，需要重新下载。
func (m *FaneditMeta) HasPoster(url string) bool {
	p, ok := m.Posters[url]
	return ok && len(p.Data) > 0
}

func (m *FaneditMeta) AddPoster(p Poster) {
	if m.Posters == nil {
		m.Posters = make(map[string]Poster, 1)
	}
	m.Posters[p.URL] = p
}
