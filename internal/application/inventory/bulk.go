package inventory

import (
	"strings"

	"keyshop-server/internal/domain/key"
)

// BulkLine 解析済みの1行
type BulkLine struct {
	Line int
	Item KeyItem
}

// ParseBulkLines "game|duration|content" 形式のテキストを解析する
// 空行は読み飛ばす。contentは2つ目の区切り以降すべて（"|"を含んでよい）
func ParseBulkLines(text string) ([]BulkLine, []BulkFailure) {
	var accepted []BulkLine
	var rejected []BulkFailure

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}
		lineNo := i + 1

		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			rejected = append(rejected, BulkFailure{Line: lineNo, Reason: "expected game|duration|content"})
			continue
		}

		item := KeyItem{
			Game:     strings.TrimSpace(parts[0]),
			Duration: strings.TrimSpace(parts[1]),
			Content:  strings.TrimSpace(parts[2]),
		}
		if item.Game == "" || item.Duration == "" {
			rejected = append(rejected, BulkFailure{Line: lineNo, Reason: "game and duration are required"})
			continue
		}
		if len(item.Content) <= key.MinContentLength {
			rejected = append(rejected, BulkFailure{Line: lineNo, Reason: key.ErrInvalidContent.Error()})
			continue
		}

		accepted = append(accepted, BulkLine{Line: lineNo, Item: item})
	}

	return accepted, rejected
}
