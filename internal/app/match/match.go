// Package match 批量处理一个媒体目录：扫描视频文件，从文件名推断标题与年份，
// 再逐组调用 Search（非 manual），汇总为 MatchReport。
package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/John-Robertt/IFDB/internal/app/agent"
	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/provider"
	"github.com/John-Robertt/IFDB/internal/scan"
)

// MaxWorkers 是并发上限；站点对突发请求较敏感。
const MaxWorkers = 8

// Searcher 是 agent.Agent 的搜索面。
type Searcher interface {
	Search(ctx context.Context, name string, year int, manual bool) (domain.SearchOutcome, error)
}

type Options struct {
	Root        string
	ExcludeDirs []string
	Workers     int // <1 视为 1；>MaxWorkers 截断
	Observer    Observer
}

// Execute 执行一次批量匹配，并返回对外稳定的 MatchReport。
// 单条失败只影响该条目；扫描失败时返回只含一条 failed 的报告。
func Execute(ctx context.Context, s Searcher, opts Options) domain.MatchReport {
	rr := domain.MatchReport{Root: opts.Root, StartedAt: time.Now()}
	obs := opts.Observer
	finish := func() domain.MatchReport {
		rr.FinishedAt = time.Now()
		rr.Finalize()
		return rr
	}

	scanStarted := time.Now()
	files, err := scan.ScanVideos(opts.Root, opts.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, domain.MatchItem{Status: domain.StatusFailed, ErrorMsg: fmt.Sprintf("扫描失败：%v", err)})
		return finish()
	}
	items, unmatched, err := groupByQuery(files)
	if err != nil {
		rr.Items = append(rr.Items, domain.MatchItem{Status: domain.StatusFailed, ErrorMsg: fmt.Sprintf("分组失败：%v", err)})
		return finish()
	}
	rr.Items = append(rr.Items, unmatched...)

	workers := min(max(opts.Workers, 1), MaxWorkers)
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]int{
			"files":     len(files),
			"groups":    len(items),
			"unmatched": len(unmatched),
		}, time.Since(scanStarted))
		obs.OnPhaseDone("exec", map[string]int{
			"workers":     workers,
			"total_items": len(items),
		}, 0)
	}

	type execResult struct {
		item domain.MatchItem
		dur  time.Duration
	}

	jobs := make(chan workItem)
	results := make(chan execResult, len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				started := time.Now()
				results <- execResult{item: matchOne(ctx, s, it), dur: time.Since(started)}
			}
		}()
	}

	go func() {
		defer close(results)
		defer wg.Wait()
		defer close(jobs)
		for _, it := range items {
			select {
			case jobs <- it:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := 0
	for r := range results {
		done++
		rr.Items = append(rr.Items, r.item)
		if obs != nil {
			obs.OnItemDone(done, len(items), r.item, r.dur)
		}
	}

	// 取消时未派发的条目记为失败，保证每组文件都出现在报告里。
	if done < len(items) {
		seen := make(map[string]bool, done)
		for _, it := range rr.Items {
			seen[queryKey(it.Query)] = true
		}
		for _, it := range items {
			if seen[queryKey(it.query)] {
				continue
			}
			rr.Items = append(rr.Items, domain.MatchItem{
				Query:     it.query,
				Files:     it.files,
				Status:    domain.StatusFailed,
				ErrorCode: domain.ErrCodeFetchFailed,
				ErrorMsg:  "已取消：" + context.Cause(ctx).Error(),
			})
		}
	}
	return finish()
}

func matchOne(ctx context.Context, s Searcher, it workItem) domain.MatchItem {
	item := domain.MatchItem{Query: it.query, Files: it.files}

	out, err := s.Search(ctx, it.query.Name, it.query.Year, false)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeFetchFailed
		var pe *provider.Error
		if errors.As(err, &pe) && pe.Stage == provider.StageParse {
			item.ErrorCode = domain.ErrCodeParseFailed
		}
		item.ErrorMsg = agent.Describe(err)
		return item
	}
	if out.NoResults || len(out.Results) == 0 {
		item.Status = domain.StatusNoResults
		return item
	}

	item.Status = domain.StatusMatched
	item.Results = out.Results
	best := out.Results[0]
	item.Best = &best
	return item
}

func queryKey(q domain.Query) string { return q.Name + "\x00" + strconv.Itoa(q.Year) }
