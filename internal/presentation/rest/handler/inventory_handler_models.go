package handler

// KeyItemRequest 追加するキー
// @Description 追加するキー
type KeyItemRequest struct {
	Game     string `json:"game" example:"pubg"`
	Duration string `json:"duration" example:"7-day"`
	Content  string `json:"content" example:"AAAA-BBBB-CCCC-DDDD"`
}

// AddKeyResponse キー追加レスポンス
// @Description キー追加レスポンス
type AddKeyResponse struct {
	KeyID    string `json:"key_id" example:"01HZX3Q6S2V7M1B3K9T4F5G6H7"`
	Game     string `json:"game" example:"pubg"`
	Duration string `json:"duration" example:"7-day"`
}

// BulkAddKeysRequest 一括追加リクエスト（JSON形式）
// @Description 一括追加リクエスト。text/plainの場合は1行1件「game|duration|content」
type BulkAddKeysRequest struct {
	Items []KeyItemRequest `json:"items"`
}

// BulkFailureItem 追加できなかった行
// @Description 追加できなかった行
type BulkFailureItem struct {
	Line   int    `json:"line" example:"3"`
	Reason string `json:"reason" example:"duplicate key content"`
}

// BulkAddKeysResponse 一括追加レスポンス
// @Description 一括追加レスポンス
type BulkAddKeysResponse struct {
	Added    int               `json:"added" example:"10"`
	Rejected int               `json:"rejected" example:"1"`
	KeyIDs   []string          `json:"key_ids"`
	Failures []BulkFailureItem `json:"failures"`
}

// KeyResponse キー検索レスポンス
// @Description キー検索レスポンス
type KeyResponse struct {
	KeyID     string  `json:"key_id" example:"01HZX3Q6S2V7M1B3K9T4F5G6H7"`
	Game      string  `json:"game" example:"pubg"`
	Duration  string  `json:"duration" example:"7-day"`
	Content   string  `json:"content" example:"AAAA-BBBB-CCCC-DDDD"`
	Used      bool    `json:"used" example:"true"`
	UsedBy    *string `json:"used_by" example:"123456789"`
	UsedAt    *string `json:"used_at" example:"2024-01-01T12:00:00Z"`
	CreatedAt string  `json:"created_at" example:"2024-01-01T10:00:00Z"`
}
