package match

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/scan"
)

type workItem struct {
	query domain.Query
	files []string // RelPath，稳定排序
}

// groupByQuery 把视频文件按推断出的搜索条件分组（多段/多版本共享一次搜索）。
//
// - items 稳定排序：按 name（大小写不敏感）再按 year
// - 无法推断标题的文件各自成为一条 unmatched
func groupByQuery(files []domain.MediaFile) (items []workItem, unmatched []domain.MatchItem, err error) {
	index := make(map[string]int, len(files))

	for i := range files {
		q, e := scan.Guess(files[i])
		if e != nil {
			var ue *scan.UnmatchedError
			if errors.As(e, &ue) {
				unmatched = append(unmatched, domain.MatchItem{
					Files:     []string{files[i].RelPath},
					Status:    domain.StatusUnmatched,
					ErrorCode: domain.ErrCodeNoTitle,
					ErrorMsg:  ue.Error(),
				})
				continue
			}
			return nil, nil, e
		}

		key := strings.ToLower(q.Name) + "\x00" + strconv.Itoa(q.Year)
		if idx, ok := index[key]; ok {
			items[idx].files = append(items[idx].files, files[i].RelPath)
			continue
		}
		index[key] = len(items)
		items = append(items, workItem{query: q, files: []string{files[i].RelPath}})
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].query.Name), strings.ToLower(items[j].query.Name)
		if a != b {
			return a < b
		}
		return items[i].query.Year < items[j].query.Year
	})
	for i := range items {
		sort.Strings(items[i].files)
	}
	return items, unmatched, nil
}
