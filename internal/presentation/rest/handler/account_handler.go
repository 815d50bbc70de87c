package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	accountapp "keyshop-server/internal/application/account"
)

// AccountHandler 残高・BAN関連ハンドラー
type AccountHandler struct {
	accountService AccountService
}

// NewAccountHandler 新しいAccountHandlerを作成
func NewAccountHandler(accountService AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// GetProfile プロフィール取得ハンドラー（ユーザーAPI用）
// @Summary プロフィールを取得
// @Description 自分の残高・紹介者・BAN状態を取得します
// @Tags account
// @Produce json
// @Security Bearer
// @Success 200 {object} ProfileResponse "取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/profile [get]
func (h *AccountHandler) GetProfile(c echo.Context) error {
	userID, err := tokenUserID(c)
	if err != nil {
		return err
	}
	return h.getProfile(c, userID)
}

// GetProfileAdmin プロフィール取得ハンドラー（管理API用）
// @Summary プロフィールを取得（管理API）
// @Tags admin
// @Produce json
// @Param user_id path string true "ユーザーID"
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} ProfileResponse "取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/users/{user_id} [get]
func (h *AccountHandler) GetProfileAdmin(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	return h.getProfile(c, userID)
}

func (h *AccountHandler) getProfile(c echo.Context, userID string) error {
	profile, err := h.accountService.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProfileResponse{
		UserID:     profile.UserID,
		Balance:    formatInt(profile.Balance),
		ReferredBy: profile.ReferredBy,
		Banned:     profile.Banned,
	})
}

// AddFunds 入金ハンドラー（管理API用）
// @Summary 残高に入金（管理API）
// @Description 支払い確認後、運用者がユーザー残高に入金します
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "ユーザーID"
// @Param X-API-Key header string true "APIキー"
// @Param request body AddFundsRequest true "入金リクエスト"
// @Success 200 {object} AddFundsResponse "入金成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/users/{user_id}/funds [post]
func (h *AccountHandler) AddFunds(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}

	var body AddFundsRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := strconv.ParseInt(body.Amount, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}

	resp, err := h.accountService.AddFunds(c.Request().Context(), &accountapp.AddFundsRequest{
		UserID: userID,
		Amount: amount,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AddFundsResponse{
		UserID:        resp.UserID,
		TransactionID: resp.TransactionID,
		Amount:        formatInt(resp.Amount),
		Balance:       formatInt(resp.Balance),
	})
}

// BanUser BANハンドラー（管理API用）
// @Summary ユーザーをBAN（管理API）
// @Tags admin
// @Produce json
// @Param user_id path string true "ユーザーID"
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} BanResponse "BAN成功"
// @Router /admin/users/{user_id}/ban [post]
func (h *AccountHandler) BanUser(c echo.Context) error {
	return h.setBanned(c, true)
}

// UnbanUser BAN解除ハンドラー（管理API用）
// @Summary ユーザーのBANを解除（管理API）
// @Tags admin
// @Produce json
// @Param user_id path string true "ユーザーID"
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} BanResponse "BAN解除成功"
// @Router /admin/users/{user_id}/ban [delete]
func (h *AccountHandler) UnbanUser(c echo.Context) error {
	return h.setBanned(c, false)
}

func (h *AccountHandler) setBanned(c echo.Context, banned bool) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if banned {
		err = h.accountService.BanUser(ctx, userID)
	} else {
		err = h.accountService.UnbanUser(ctx, userID)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, BanResponse{UserID: userID, Banned: banned})
}
