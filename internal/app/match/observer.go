package match

import (
	"time"

	"github.com/John-Robertt/IFDB/internal/domain"
)

// Observer 把“阶段/条目结果”从执行流程中解耦出来。
//
// 约束：
// - match 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 事件都在调用 Execute 的 goroutine 上发出；实现若自己起 goroutine（例如 keepalive）需自行加锁
type Observer interface {
	// OnPhaseDone 在扫描/分组/执行就绪时调用。
	OnPhaseDone(name string, fields map[string]int, dur time.Duration)
	// OnItemDone 在某个条目完成时调用（idx 从 1 开始）。
	OnItemDone(idx, total int, item domain.MatchItem, dur time.Duration)
}
