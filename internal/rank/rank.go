package rank

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/John-Robertt/IFDB/internal/domain"
)

const (
	DefaultInitialScore = 100 // 扣分前的起始分
	DefaultGoodScore    = 98  // 达到该分数即可提前结束（非 manual 模式）
	DefaultIgnoreScore  = 45  // 低于该分数的候选直接丢弃
)

// Config 是打分阈值；通过 New 显式注入，不使用包级可变状态。
type Config struct {
	InitialScore int
	GoodScore    int
	IgnoreScore  int
}

func DefaultConfig() Config {
	return Config{
		InitialScore: DefaultInitialScore,
		GoodScore:    DefaultGoodScore,
		IgnoreScore:  DefaultIgnoreScore,
	}
}

// Scorer 按编辑距离给候选打分。零值不可用，请用 New 构造。
type Scorer struct {
	cfg Config
}

func New(cfg Config) Scorer { return Scorer{cfg: cfg} }

func (s Scorer) Config() Config { return s.cfg }

// Score 返回 InitialScore - Levenshtein(fold(title), fold(query))。
// 不做下限截断：负分由 Rank 的过滤规则丢弃。
func (s Scorer) Score(title, query string) int {
	return s.cfg.InitialScore - levenshtein.ComputeDistance(fold(title), fold(query))
}

// Rank 给每个候选打分，丢弃分数 < IgnoreScore 的候选，再按分数降序稳定排序。
//
// ok=false 表示没有任何候选通过过滤（“无结果”），此时 results 为 nil。
// display 用于生成展示名中的标题部分；为 nil 时使用原标题。
func (s Scorer) Rank(cands []domain.Candidate, query string, display func(string) string) (results []domain.RankedResult, ok bool) {
	for _, c := range cands {
		c.Score = s.Score(c.Title, query)
		if c.Score < s.cfg.IgnoreScore {
			continue
		}
		title := c.Title
		if display != nil {
			title = display(title)
		}
		results = append(results, domain.RankedResult{
			Candidate: c,
			Name:      domain.DisplayName(title, c.ReleaseDate),
		})
	}
	if len(results) == 0 {
		return nil, false
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, true
}

// Surface 决定向调用方展示多少条结果。
//
// 非 manual 且结果多于一条时，输出到第一条 Score >= GoodScore 的结果为止（含该条）；
// manual 模式或只有一条结果时输出全部。非空输入永远得到非空输出。
func (s Scorer) Surface(results []domain.RankedResult, manual bool) []domain.RankedResult {
	if manual || len(results) <= 1 {
		return results
	}
	for i, r := range results {
		if r.Score >= s.cfg.GoodScore {
			return results[:i+1]
		}
	}
	return results
}

func fold(s string) string { return cases.Fold().String(s) }
