package auth

// GenerateTokenRequest トークン発行リクエスト
type GenerateTokenRequest struct {
	UserID string
}

// GenerateTokenResponse トークン発行レスポンス
type GenerateTokenResponse struct {
	Token     string
	ExpiresIn int64  // 秒
	TokenType string // "Bearer"
}
