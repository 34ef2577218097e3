package provider

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/IFDB/internal/domain"
)

// Catalog 把“站点变化”限制在 provider 包内部；agent 只依赖该接口与稳定的 domain 类型。
//
// 约束：
// - 不做网络请求、缓存、重试、限速（由 httpx 层统一实现）
// - ParseListing / ParseDetail 必须是纯函数：相同文档 => 相同输出
type Catalog interface {
	Name() string
	SearchURL(keywords string) string
	DetailURL(id string) string
	ParseListing(doc *goquery.Document) []domain.Candidate
	ParseDetail(doc *goquery.Document, pageURL string) (domain.Detail, error)
}
