package domain

import "strings"

// MinYear 以下的年份视为“未提供”（宿主常把未知年份填成 0 或 1900）。
const MinYear = 1900

// Query 是一次搜索的不可变输入。
type Query struct {
	Name string `json:"name"`
	Year int    `json:"year,omitempty"` // 0 表示未提供
}

// NewQuery 规范化输入：去首尾空白；年份 <= MinYear 视为未提供。
func NewQuery(name string, year int) Query {
	if year <= MinYear {
		year = 0
	}
	return Query{Name: strings.TrimSpace(name), Year: year}
}

func (q Query) HasYear() bool { return q.Year > MinYear }
