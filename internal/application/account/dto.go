package account

// Profile ユーザープロフィール
type Profile struct {
	UserID     string
	Balance    int64
	ReferredBy *string
	Banned     bool
}

// AddFundsRequest 入金リクエスト
type AddFundsRequest struct {
	UserID string
	Amount int64
}

// AddFundsResponse 入金レスポンス
type AddFundsResponse struct {
	UserID        string
	TransactionID string
	Amount        int64
	Balance       int64
}
