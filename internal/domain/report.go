package domain

import (
	"sort"
	"time"
)

const (
	StatusMatched   = "matched"
	StatusNoResults = "no_results"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

const (
	ErrCodeNoTitle     = "no_title"
	ErrCodeFetchFailed = "fetch_failed"
	ErrCodeParseFailed = "parse_failed"
)

// MediaFile 是扫描到的一个视频文件（只做 stat，不读内容）。
type MediaFile struct {
	AbsPath string `json:"-"`
	RelPath string `json:"rel_path"`
	Base    string `json:"-"` // 不含扩展名的文件名
	Ext     string `json:"-"` // 小写，含 '.'
	Size    int64  `json:"-"`
}

// MatchReport 是 match 命令对外稳定输出（stdout JSON）的结构。
type MatchReport struct {
	Root string `json:"root"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary MatchSummary `json:"summary"`
	Items   []MatchItem  `json:"items"`
}

type MatchSummary struct {
	Matched   int `json:"matched"`
	NoResults int `json:"no_results"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`
}

// MatchItem 对应一组同名文件（多段/多版本共享一次搜索）。
type MatchItem struct {
	Query Query    `json:"query"`
	Files []string `json:"files"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Best    *RankedResult  `json:"best,omitempty"`
	Results []RankedResult `json:"results"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 query.name 字典序；name=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *MatchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i].Query.Name, r.Items[j].Query.Name
		switch {
		case a == "":
			return false
		case b == "":
			return true
		default:
			return a < b
		}
	})

	var s MatchSummary
	for i := range r.Items {
		if r.Items[i].Results == nil {
			r.Items[i].Results = []RankedResult{}
		}
		if r.Items[i].Files == nil {
			r.Items[i].Files = []string{}
		}
		switch r.Items[i].Status {
		case StatusMatched:
			s.Matched++
		case StatusNoResults:
			s.NoResults++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	r.Summary = s
	if r.Items == nil {
		r.Items = []MatchItem{}
	}
}
