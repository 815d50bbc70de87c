package inventory

import "time"

// KeyItem 追加するキー1件
type KeyItem struct {
	Game     string
	Duration string
	Content  string
}

// AddKeyResponse キー追加レスポンス
type AddKeyResponse struct {
	KeyID    string
	Game     string
	Duration string
}

// BulkAddKeysResponse 一括追加レスポンス
type BulkAddKeysResponse struct {
	Added    int
	Rejected int
	KeyIDs   []string
	Failures []BulkFailure
}

// BulkFailure 追加できなかった行
type BulkFailure struct {
	Line   int // 1始まり
	Reason string
}

// KeyView 検索結果のキー
type KeyView struct {
	KeyID     string
	Game      string
	Duration  string
	Content   string
	Used      bool
	UsedBy    *string
	UsedAt    *time.Time
	CreatedAt time.Time
}
