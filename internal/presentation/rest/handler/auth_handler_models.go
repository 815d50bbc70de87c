package handler

// GenerateTokenRequest トークン発行リクエスト
// @Description トークン発行リクエスト
type GenerateTokenRequest struct {
	UserID string `json:"user_id" example:"123456789"`
}

// GenerateTokenResponse トークン発行レスポンス
// @Description トークン発行レスポンス
type GenerateTokenResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoiMTIzNDU2Nzg5In0.signature"`
	ExpiresIn int64  `json:"expires_in" example:"86400"`
	TokenType string `json:"token_type" example:"Bearer"`
}
