package domain

// Candidate 是一条未打分的原始搜索命中。
//
// 约束：字段允许为空串，但 Listing Parser 不得因此丢弃候选（过滤只发生在打分阶段）。
type Candidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ThumbURL    string `json:"thumb_url"`
	ReleaseDate string `json:"release_date"`
	Score       int    `json:"score"`
}

// RankedResult 是已打分、可直接展示的候选。
type RankedResult struct {
	Candidate
	Name string `json:"name"` // 展示名：标题 + " [" + 发布日期 + "]"
}

// DisplayName 按固定格式拼接展示名。
func DisplayName(title, releaseDate string) string {
	return title + " [" + releaseDate + "]"
}

// SearchOutcome 是 Search 的对外结果。
//
// NoResults=true 表示“搜索执行了，但没有任何候选通过过滤”；
// 此时 Results 为空。反过来，NoResults=false 时 Results 至少有一条。
type SearchOutcome struct {
	Query     Query          `json:"query"`
	Manual    bool           `json:"manual"`
	URL       string         `json:"url"`
	Found     int            `json:"found"` // 解析出的原始候选数（过滤前）
	NoResults bool           `json:"no_results"`
	Results   []RankedResult `json:"results"`
}
