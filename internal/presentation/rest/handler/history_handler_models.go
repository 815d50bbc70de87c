package handler

// PurchaseItem 購入履歴アイテム
// @Description 購入履歴アイテム
type PurchaseItem struct {
	PurchaseID string `json:"purchase_id" example:"0b8f3c8e-1d7e-4b8e-9a39-8f1b8f0f0c11"`
	KeyID      string `json:"key_id" example:"01HZX3Q6S2V7M1B3K9T4F5G6H7"`
	Key        string `json:"key" example:"AAAA-BBBB-CCCC-DDDD"`
	Game       string `json:"game" example:"pubg"`
	Duration   string `json:"duration" example:"7-day"`
	Price      string `json:"price" example:"500"`
	CreatedAt  string `json:"created_at" example:"2024-01-01T12:00:00Z"`
}

// PurchaseHistoryResponse 購入履歴レスポンス
// @Description 購入履歴レスポンス（新しい順）
type PurchaseHistoryResponse struct {
	UserID    string         `json:"user_id" example:"123456789"`
	Purchases []PurchaseItem `json:"purchases"`
	Limit     int            `json:"limit" example:"5"`
}

// TransactionItem 残高変動アイテム
// @Description 残高変動アイテム
type TransactionItem struct {
	TransactionID   string  `json:"transaction_id" example:"5f0c6c1e-6a43-4e0c-9d6f-4d2f1f0f2a9b"`
	TransactionType string  `json:"transaction_type" example:"consume"`
	Amount          string  `json:"amount" example:"500"`
	BalanceBefore   string  `json:"balance_before" example:"1500"`
	BalanceAfter    string  `json:"balance_after" example:"1000"`
	Status          string  `json:"status" example:"completed"`
	ReferenceID     *string `json:"reference_id,omitempty" example:"0b8f3c8e-1d7e-4b8e-9a39-8f1b8f0f0c11"`
	CreatedAt       string  `json:"created_at" example:"2024-01-01T12:00:00Z"`
}

// TransactionHistoryResponse 残高変動履歴レスポンス
// @Description 残高変動履歴レスポンス
type TransactionHistoryResponse struct {
	Transactions []TransactionItem `json:"transactions"`
	Limit        int               `json:"limit" example:"50"`
	Offset       int               `json:"offset" example:"0"`
}
