package domain

import (
	"encoding/json"
	"strings"
)

// Set 是保持插入顺序的字符串集合（去空白、去重）。
// 零值可直接使用。
type Set struct {
	items []string
	index map[string]struct{}
}

func NewSet(items ...string) Set {
	var s Set
	s.Add(items...)
	return s
}

// Add 依次加入元素；空白串与重复元素被忽略。
func (s *Set) Add(items ...string) {
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if s.index == nil {
			s.index = make(map[string]struct{}, 4)
		}
		if _, ok := s.index[it]; ok {
			continue
		}
		s.index[it] = struct{}{}
		s.items = append(s.items, it)
	}
}

// Union 把 o 的元素并入 s（顺序：s 原有元素在前）。
func (s *Set) Union(o Set) { s.Add(o.items...) }

func (s *Set) Clear() {
	s.items = nil
	s.index = nil
}

func (s Set) Has(it string) bool {
	_, ok := s.index[strings.TrimSpace(it)]
	return ok
}

func (s Set) Len() int { return len(s.items) }

// Items 返回副本，调用方修改不影响集合本身。
func (s Set) Items() []string { return append([]string(nil), s.items...) }

func (s Set) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

func (s *Set) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	s.Clear()
	s.Add(items...)
	return nil
}
