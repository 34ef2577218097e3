package title

import (
	"regexp"
	"strings"
)

// Rule 是一条有序替换规则（大小写不敏感，替换全部出现）。
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Ruleset 是某个系列的缩写规则。
//
// 约束：Rules 按顺序执行；后面的规则可能依赖前面规则留下的文本。
type Ruleset struct {
	Key     string
	Trigger string // 小写子串；标题包含它时该规则集才可能触发
	Rules   []Rule
}

// Registry 是只读的规则集注册表；切片顺序即触发优先级。
type Registry struct {
	sets []Ruleset
}

// NewRegistry 按给定顺序构造注册表。
func NewRegistry(sets ...Ruleset) Registry {
	cp := make([]Ruleset, 0, len(sets))
	for _, s := range sets {
		s.Key = strings.ToLower(strings.TrimSpace(s.Key))
		s.Trigger = strings.ToLower(s.Trigger)
		s.Rules = append([]Rule(nil), s.Rules...)
		cp = append(cp, s)
	}
	return Registry{sets: cp}
}

// Literal 构造“字面量匹配”的规则（正则元字符会被转义）。
func Literal(from, to string) Rule {
	return Rule{Pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(from)), Replacement: to}
}

const (
	KeyStarWars = "sw"
	KeyLotR     = "lotr"
)

// DefaultRegistry 返回内置的两个系列：Star Wars 优先于 Lord of the Rings。
func DefaultRegistry() Registry {
	return NewRegistry(
		Ruleset{
			Key:     KeyStarWars,
			Trigger: "star wars",
			Rules: []Rule{
				Literal("Star Wars", "SW"),
				Literal("Episode", "Ep"),
			},
		},
		Ruleset{
			Key:     KeyLotR,
			Trigger: "lord of the rings",
			Rules: []Rule{
				Literal("The Lord of the Rings", "LotR"),
				Literal("Lord of the Rings, The", "LotR"),
				Literal("Lord of the Rings", "LotR"),
			},
		},
	)
}

// Keys 返回按优先级排列的规则集 key。
func (r Registry) Keys() []string {
	out := make([]string, 0, len(r.sets))
	for _, s := range r.sets {
		out = append(out, s.Key)
	}
	return out
}

// Shorten 用 key 对应的规则集改写标题；未知 key 原样返回。
func (r Registry) Shorten(title, key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range r.sets {
		if s.Key == key {
			return s.apply(title)
		}
	}
	return title
}

// ShortenIfEnabled 至多应用一个规则集：按优先级找到第一个
// “标题包含触发词且 flags[key] 为 true”的规则集。
func (r Registry) ShortenIfEnabled(title string, flags map[string]bool) string {
	lower := strings.ToLower(title)
	for _, s := range r.sets {
		if flags[s.Key] && strings.Contains(lower, s.Trigger) {
			return s.apply(title)
		}
	}
	return title
}

// ShortenAny 与 ShortenIfEnabled 相同，但忽略开关（用于搜索结果展示名）。
func (r Registry) ShortenAny(title string) string {
	lower := strings.ToLower(title)
	for _, s := range r.sets {
		if strings.Contains(lower, s.Trigger) {
			return s.apply(title)
		}
	}
	return title
}

func (s Ruleset) apply(title string) string {
	for _, rule := range s.Rules {
		if rule.Pattern == nil {
			continue
		}
		title = rule.Pattern.ReplaceAllLiteralString(title, rule.Replacement)
	}
	return title
}
