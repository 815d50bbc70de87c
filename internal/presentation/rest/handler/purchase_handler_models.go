package handler

// PurchaseKeyRequest キー購入リクエスト
// @Description キー購入リクエスト
type PurchaseKeyRequest struct {
	Game     string `json:"game" example:"pubg"`
	Duration string `json:"duration" example:"7-day"`
}

// PurchaseKeyResponse キー購入レスポンス
// @Description キー購入レスポンス
type PurchaseKeyResponse struct {
	PurchaseID   string `json:"purchase_id" example:"0b8f3c8e-1d7e-4b8e-9a39-8f1b8f0f0c11"`
	KeyID        string `json:"key_id" example:"01HZX3Q6S2V7M1B3K9T4F5G6H7"`
	Key          string `json:"key" example:"AAAA-BBBB-CCCC-DDDD"`
	Game         string `json:"game" example:"pubg"`
	Duration     string `json:"duration" example:"7-day"`
	Price        string `json:"price" example:"500"`
	BalanceAfter string `json:"balance_after" example:"1000"`
	CreatedAt    string `json:"created_at" example:"2024-01-01T12:00:00Z"`
	Replayed     bool   `json:"replayed" example:"false"`
}
