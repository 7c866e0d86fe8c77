package util

import (
	"net/url"
	"strings"
)

// HostOf 从完整 URL 中取出主机名（小写、去端口）
// 相对地址或无法解析的地址返回 false
func HostOf(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		// 路径中的非法 % 转义、非数字端口等会让 url.Parse 失败，
		// 但浏览器仍会发出请求，此时只解析 scheme://authority 部分
		return hostFromAuthority(rawURL)
	}
	if u.Scheme == "" {
		return "", false
	}
	if u.Opaque != "" {
		// mailto:, data: 之类没有主机的地址
		return "", true
	}
	return strings.ToLower(u.Hostname()), true
}

// hostFromAuthority 手动解析 scheme://[userinfo@]host[:port]
func hostFromAuthority(rawURL string) (string, bool) {
	i := strings.Index(rawURL, "://")
	if i <= 0 || !validScheme(rawURL[:i]) {
		return "", false
	}

	authority := rawURL[i+3:]
	if end := strings.IndexAny(authority, "/?#"); end >= 0 {
		authority = authority[:end]
	}
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		authority = authority[at+1:]
	}

	host := authority
	if strings.HasPrefix(host, "[") {
		end := strings.IndexByte(host, ']')
		if end < 0 {
			return "", false
		}
		host = host[1:end]
	} else if colon := strings.IndexByte(host, ':'); colon >= 0 {
		host = host[:colon]
	}

	if host == "" || strings.ContainsAny(host, " \t\r\n<>\\^|\"%") {
		return "", false
	}
	return strings.ToLower(host), true
}

func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}

// IsRemoteURL 判断规则源是否需要通过 HTTP 下载
func IsRemoteURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LocalPath 返回本地规则源对应的文件路径
func LocalPath(source string) string {
	return strings.TrimPrefix(source, "file://")
}
