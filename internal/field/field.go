// Package field 实现 IFDB 页面的“字段/值容器”取值约定：
//
//	<div class="jrGenre ..."><div class="jrFieldValue ..."><a>Drama</a></div></div>        // 单值
//	<div class="jrGenre ..."><div class="jrFieldValue ..."><ul><li><a>Drama</a></li>...</ul></div></div> // 列表
//
// 查询使用 CSS 选择器（goquery/cascadia）。类选择器是“成员判定”而非等值比较，
// 因此天然容忍多个类名与首尾空白。
package field

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ValueClass 是值容器的固定类名。
const ValueClass = "jrFieldValue"

// Kind 标记一次字段提取得到的形态。
type Kind int

const (
	Empty Kind = iota
	Single
	Many
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Many:
		return "many"
	default:
		return "empty"
	}
}

// Value 是字段提取的带标签结果（Empty | Single | Many）。
type Value struct {
	Kind  Kind
	Text  string   // Kind==Single
	Items []string // Kind==Many，按页面顺序
}

// Values 把结果摊平成列表：Single 为一个元素，Empty 为 nil。
func (v Value) Values() []string {
	switch v.Kind {
	case Single:
		return []string{v.Text}
	case Many:
		return append([]string(nil), v.Items...)
	default:
		return nil
	}
}

// Join 用 sep 拼接全部值（Empty 时为空串）。
func (v Value) Join(sep string) string { return strings.Join(v.Values(), sep) }

// Text 返回 sel 下第一个匹配 query 的节点文本；无匹配时返回空串（不是错误）。
func Text(sel *goquery.Selection, query string) string {
	if sel == nil {
		return ""
	}
	return normSpace(sel.Find(query).First().Text())
}

// Attr 返回 sel 下第一个匹配 query 的节点的属性值；无匹配或无该属性时返回空串。
func Attr(sel *goquery.Selection, query, name string) string {
	if sel == nil {
		return ""
	}
	v, _ := sel.Find(query).First().Attr(name)
	return strings.TrimSpace(v)
}

// Container 返回字段 name 的值容器选择器。
func Container(name string) string {
	return "div." + name + " > div." + ValueClass
}

// Singular 返回值容器内直接子 <a> 的文本（取第一个非空的）。
// 字段缺失或形态是列表时返回空串。
func Singular(sel *goquery.Selection, name string) string {
	if sel == nil {
		return ""
	}
	return firstAnchorText(sel.Find(Container(name) + " > a"))
}

// Plural 返回值容器下的全部 <li> 节点（按文档顺序）；空选择集也是合法结果。
func Plural(sel *goquery.Selection, name string) *goquery.Selection {
	if sel == nil {
		return &goquery.Selection{}
	}
	return sel.Find(Container(name) + " li")
}

// ItemText 返回列表项直接子 <a> 的文本。
func ItemText(li *goquery.Selection) string {
	if li == nil {
		return ""
	}
	return firstAnchorText(li.ChildrenFiltered("a"))
}

// Extract 执行“先单值、后列表”的两步提取。
//
// 单值非空即返回 Single；否则逐个读取列表项的锚文本，得到 Many；两者都没有则 Empty。
// 文本为空的列表项被跳过。
func Extract(sel *goquery.Selection, name string) Value {
	if s := Singular(sel, name); s != "" {
		return Value{Kind: Single, Text: s}
	}

	var items []string
	Plural(sel, name).Each(func(_ int, li *goquery.Selection) {
		if t := ItemText(li); t != "" {
			items = append(items, t)
		}
	})
	if len(items) == 0 {
		return Value{Kind: Empty}
	}
	return Value{Kind: Many, Items: items}
}

func firstAnchorText(as *goquery.Selection) string {
	var out string
	as.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		out = normSpace(a.Text())
		return out == ""
	})
	return out
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
