package provider

import "fmt"

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Error 是一次 search/update 的可追溯错误：带上 provider、阶段、条目 id 与 URL，
// 上层据此直接记日志，不需要再拼上下文。
type Error struct {
	Provider string
	Stage    string // StageFetch 或 StageParse
	ID       string // update 时为条目 id；search 时为空
	URL      string
	Err      error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("provider=%s stage=%s url=%s: %v", e.Provider, e.Stage, e.URL, e.Err)
	}
	return fmt.Sprintf("provider=%s stage=%s id=%s url=%s: %v", e.Provider, e.Stage, e.ID, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
