package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authapp "keyshop-server/internal/application/auth"
)

// AuthHandler 認証関連ハンドラー
type AuthHandler struct {
	authService TokenService
}

// NewAuthHandler 新しいAuthHandlerを作成
func NewAuthHandler(authService TokenService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// GenerateToken トークン発行ハンドラー（管理API用）
// @Summary ユーザー用トークンを発行
// @Description フロントエンド（ボット等）がユーザーの代理でAPIを呼ぶためのJWTを発行します
// @Tags auth
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body GenerateTokenRequest true "トークン発行リクエスト"
// @Success 200 {object} GenerateTokenResponse "発行成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateToken(c echo.Context) error {
	var body GenerateTokenRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	resp, err := h.authService.GenerateToken(c.Request().Context(), &authapp.GenerateTokenRequest{
		UserID: body.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, GenerateTokenResponse{
		Token:     resp.Token,
		ExpiresIn: resp.ExpiresIn,
		TokenType: resp.TokenType,
	})
}
