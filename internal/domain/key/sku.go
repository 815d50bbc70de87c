package key

import (
	"fmt"
	"strings"
)

// SKU 商品を識別するゲームと期間の組
type SKU struct {
	Game     string
	Duration string
}

// NewSKU 新しいSKUを作成
func NewSKU(game, duration string) (SKU, error) {
	game = strings.TrimSpace(game)
	duration = strings.TrimSpace(duration)
	if game == "" || len(game) > 64 {
		return SKU{}, ErrInvalidGame
	}
	if duration == "" || len(duration) > 32 {
		return SKU{}, ErrInvalidDuration
	}
	return SKU{Game: game, Duration: duration}, nil
}

// String 文字列表現を返す
func (s SKU) String() string {
	return fmt.Sprintf("%s/%s", s.Game, s.Duration)
}
