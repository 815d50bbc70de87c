package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	referralapp "keyshop-server/internal/application/referral"
)

// ReferralHandler 紹介関連ハンドラー
type ReferralHandler struct {
	referralService ReferralService
}

// NewReferralHandler 新しいReferralHandlerを作成
func NewReferralHandler(referralService ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// RegisterReferral 紹介登録ハンドラー（ユーザーAPI用）
// @Summary 紹介者を登録
// @Description 初回のみ紹介者を登録し、紹介者にボーナスを付与します。2回目以降・自己紹介は何もせず状態を返します
// @Tags referral
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body RegisterReferralRequest true "紹介登録リクエスト"
// @Success 200 {object} RegisterReferralResponse "処理結果"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 403 {object} ErrorResponse "BAN済み"
// @Router /me/referral [post]
func (h *ReferralHandler) RegisterReferral(c echo.Context) error {
	userID, err := tokenUserID(c)
	if err != nil {
		return err
	}

	var body RegisterReferralRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return h.register(c, userID, body.ReferrerID)
}

// RegisterReferralAdmin 紹介登録ハンドラー（管理API用）
// @Summary 紹介者を登録（管理API）
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body RegisterReferralAdminRequest true "紹介登録リクエスト"
// @Success 200 {object} RegisterReferralResponse "処理結果"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/referrals [post]
func (h *ReferralHandler) RegisterReferralAdmin(c echo.Context) error {
	var body RegisterReferralAdminRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return h.register(c, body.UserID, body.ReferrerID)
}

func (h *ReferralHandler) register(c echo.Context, userID, referrerID string) error {
	resp, err := h.referralService.RegisterReferral(c.Request().Context(), &referralapp.RegisterReferralRequest{
		UserID:     userID,
		ReferrerID: referrerID,
	})
	if err != nil {
		return err
	}

	out := RegisterReferralResponse{
		Status: string(resp.Status),
		Bonus:  formatInt(resp.Bonus),
	}
	if resp.Status == referralapp.StatusCredited {
		out.ReferrerBalance = formatInt(resp.ReferrerBalance)
	}
	return c.JSON(http.StatusOK, out)
}
