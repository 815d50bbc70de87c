// Package access 運用者API（REST・gRPC共通）のAPIキーとIP許可リストの判定
package access

import (
	"crypto/subtle"
	"net"
	"strings"
)

// ValidAPIKey 設定済みキーと定数時間で比較（未設定なら常に拒否）
func ValidAPIKey(expected, given string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// AllowList 許可するネットワークの一覧
type AllowList []*net.IPNet

// ParseAllowList IPアドレスまたはCIDRの一覧を解析する
// 単一IPは/32（IPv6は/128）として扱い、解析できない項目はinvalidに返す
func ParseAllowList(entries []string) (list AllowList, invalid []string) {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				invalid = append(invalid, entry)
				continue
			}
			list = append(list, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			invalid = append(invalid, entry)
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			list = append(list, &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)})
		} else {
			list = append(list, &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)})
		}
	}
	return list, invalid
}

// Contains IPアドレスがいずれかのネットワークに含まれるか
func (a AllowList) Contains(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	for _, n := range a {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// HostFromAddr "host:port"形式のアドレスからホスト部を取り出す
func HostFromAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
