package referral

// Status 紹介登録の結果
type Status string

const (
	StatusCredited        Status = "credited"         // 紹介者にボーナスを付与
	StatusAlreadyReferred Status = "already_referred" // 既に紹介者が設定済み（何もしない）
	StatusSelfReferral    Status = "self_referral"    // 自分自身の紹介（何もしない）
)

// RegisterReferralRequest 紹介登録リクエスト
type RegisterReferralRequest struct {
	UserID     string // 新規ユーザー
	ReferrerID string
}

// RegisterReferralResponse 紹介登録レスポンス
type RegisterReferralResponse struct {
	Status          Status
	Bonus           int64
	ReferrerBalance int64 // StatusCreditedの場合のみ
}
