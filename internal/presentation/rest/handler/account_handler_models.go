package handler

// ProfileResponse プロフィールレスポンス
// @Description プロフィールレスポンス
type ProfileResponse struct {
	UserID     string  `json:"user_id" example:"123456789"`
	Balance    string  `json:"balance" example:"1500"`
	ReferredBy *string `json:"referred_by" example:"987654321"`
	Banned     bool    `json:"banned" example:"false"`
}

// AddFundsRequest 入金リクエスト
// @Description 入金リクエスト
type AddFundsRequest struct {
	Amount string `json:"amount" example:"1000"`
}

// AddFundsResponse 入金レスポンス
// @Description 入金レスポンス
type AddFundsResponse struct {
	UserID        string `json:"user_id" example:"123456789"`
	TransactionID string `json:"transaction_id" example:"5f0c6c1e-6a43-4e0c-9d6f-4d2f1f0f2a9b"`
	Amount        string `json:"amount" example:"1000"`
	Balance       string `json:"balance" example:"2500"`
}

// BanResponse BAN状態レスポンス
// @Description BAN状態レスポンス
type BanResponse struct {
	UserID string `json:"user_id" example:"123456789"`
	Banned bool   `json:"banned" example:"true"`
}
