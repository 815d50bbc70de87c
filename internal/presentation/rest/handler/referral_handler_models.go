package handler

// RegisterReferralRequest 紹介登録リクエスト（ユーザーAPI用）
// @Description 紹介登録リクエスト
type RegisterReferralRequest struct {
	ReferrerID string `json:"referrer_id" example:"987654321"`
}

// RegisterReferralAdminRequest 紹介登録リクエスト（管理API用）
// @Description 紹介登録リクエスト（フロントエンドからの通知）
type RegisterReferralAdminRequest struct {
	UserID     string `json:"user_id" example:"123456789"`
	ReferrerID string `json:"referrer_id" example:"987654321"`
}

// RegisterReferralResponse 紹介登録レスポンス
// @Description 紹介登録レスポンス
type RegisterReferralResponse struct {
	Status          string `json:"status" example:"credited" enums:"credited,already_referred,self_referral"`
	Bonus           string `json:"bonus" example:"50"`
	ReferrerBalance string `json:"referrer_balance,omitempty" example:"1050"`
}
