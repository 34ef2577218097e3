package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/John-Robertt/IFDB/internal/app/match"
	"github.com/John-Robertt/IFDB/internal/domain"
)

var _ match.Observer = (*progressUI)(nil)

// progressUI 是交互终端下 match 的进度输出。
//
// 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约；
// 长时间无条目完成时定期输出一行 keepalive。
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total, done, ok, miss, fail int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration
	stopCh             chan struct{}
}

func newProgressUI(w io.Writer) *progressUI {
	now := time.Now()
	return &progressUI{
		w:                  w,
		startedAt:          now,
		lastPrinted:        now,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]int, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d groups=%d unmatched=%d (%s)\n",
			fields["files"], fields["groups"], fields["unmatched"], formatShortDuration(dur))
	case "exec":
		p.total = fields["total_items"]
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d\n\n", fields["workers"], p.total)
		if p.total > 0 && p.stopCh == nil {
			p.startTickerLocked()
		}
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, item domain.MatchItem, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done, p.total = idx, total
	switch item.Status {
	case domain.StatusMatched:
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] %s OK id=%s score=%d %s (%s)\n",
			idx, total, item.Query.Name, item.Best.ID, item.Best.Score, truncate(item.Best.Name, 80), formatShortDuration(dur))
	case domain.StatusNoResults:
		p.miss++
		fmt.Fprintf(p.w, "[%d/%d] %s MISS (%s)\n", idx, total, item.Query.Name, formatShortDuration(dur))
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, item.Query.Name, item.ErrorCode, truncate(item.ErrorMsg, 160), formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()

	if p.stopCh != nil && p.done >= p.total {
		p.stopLocked()
	}
}

// Close 停止 keepalive（在被取消、条目未全部完成时也要调用）。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *progressUI) stopLocked() {
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

func (p *progressUI) startTickerLocked() {
	stop := make(chan struct{})
	p.stopCh = stop

	go func() {
		t := time.NewTicker(p.tickerInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > p.keepaliveThreshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d miss=%d fail=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.miss, p.fail, formatElapsed(time.Since(p.startedAt)))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", max(d, 0).Seconds())
}

func formatElapsed(d time.Duration) string {
	sec := int(max(d, 0).Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}
