package larkapi

import "strings"

// Well-known domain selectors. Anything else is treated as a custom base URL
// for private deployments.
const (
	DomainFeishu = "feishu"
	DomainLark   = "lark"
)

const (
	feishuBaseURL = "https://open.feishu.cn"
	larkBaseURL   = "https://open.larksuite.com"
)

// BaseURL resolves a domain selector to the API base URL. Custom URLs are
// returned with trailing slashes trimmed so path joining stays predictable.
// An empty domain defaults to Feishu.
func BaseURL(domain string) string {
	switch domain {
	case DomainLark:
		return larkBaseURL
	case DomainFeishu, "":
		return feishuBaseURL
	default:
		return strings.TrimRight(domain, "/")
	}
}
