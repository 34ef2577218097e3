package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/IFDB/internal/provider"
	"github.com/John-Robertt/IFDB/internal/provider/ifdb"
)

// Describe 把 Search/Update 返回的错误转成面向用户、可操作的一行说明。
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var pe *provider.Error
	if !errors.As(err, &pe) {
		return err.Error()
	}
	subject := pe.Provider
	if pe.ID != "" {
		subject = fmt.Sprintf("%s（id=%s）", pe.Provider, pe.ID)
	}
	switch pe.Stage {
	case provider.StageParse:
		return describeParse(subject, pe.Err)
	default:
		return describeFetch(subject, pe.Err)
	}
}

func describeFetch(subject string, err error) string {
	var be *provider.BlockedError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s 被站点拦截（%s）。当前不支持绕过；建议配置 proxy.url 或稍后重试。", subject, be.Reason)
	}

	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("%s 返回 HTTP %d（可能触发限流）。建议调大 request_delay_ms 或配置 proxy.url。", subject, hs.StatusCode)
		case 404:
			return fmt.Sprintf("%s 返回 HTTP 404（条目可能不存在或已下架）。", subject)
		default:
			if loc := strings.TrimSpace(hs.Location); loc != "" {
				return fmt.Sprintf("%s 返回 HTTP %d（重定向）：%s", subject, hs.StatusCode, loc)
			}
			return fmt.Sprintf("%s 返回 HTTP %d。", subject, hs.StatusCode)
		}
	}

	if errors.Is(err, context.Canceled) {
		return subject + " 抓取已取消。"
	}
	low := strings.ToLower(fmt.Sprint(err))
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络或代理后重试。", subject)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") {
		return fmt.Sprintf("%s 连接失败（TLS）。可设置 base_url 指向可用镜像，或配置 proxy.url。", subject)
	}
	return fmt.Sprintf("%s 抓取失败：%v", subject, err)
}

func describeParse(subject string, err error) string {
	var pe *ifdb.ParseError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s 的 %s 字段格式异常（%q），记录未更新。", subject, pe.Field, pe.Raw)
	}
	// 通常意味着站点结构变化，或被返回了非详情页内容。
	return fmt.Sprintf("%s 解析失败（站点结构可能变化或返回了非详情页内容）：%v", subject, err)
}
