package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	purchaseapp "keyshop-server/internal/application/purchase"
)

// IdempotencyKeyHeader 購入リクエストの冪等性キーヘッダー
const IdempotencyKeyHeader = "Idempotency-Key"

// PurchaseHandler 購入関連ハンドラー
type PurchaseHandler struct {
	purchaseService PurchaseService
}

// NewPurchaseHandler 新しいPurchaseHandlerを作成
func NewPurchaseHandler(purchaseService PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// PurchaseKey キー購入ハンドラー（ユーザーAPI用）
// @Summary キーを購入
// @Description 残高から価格を引き落とし、指定ゲーム・期間の未使用キーを1件割り当てます。
// @Description Idempotency-Keyを指定した再送は最初の結果を返します
// @Tags purchase
// @Accept json
// @Produce json
// @Security Bearer
// @Param Idempotency-Key header string false "冪等性キー"
// @Param request body PurchaseKeyRequest true "購入リクエスト"
// @Success 201 {object} PurchaseKeyResponse "購入成功"
// @Success 200 {object} PurchaseKeyResponse "再送（保存済みの結果）"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 403 {object} ErrorResponse "BAN済み"
// @Failure 409 {object} ErrorResponse "残高不足・在庫切れ・処理中"
// @Failure 500 {object} ErrorResponse "部分コミット（要突合）"
// @Router /me/purchases [post]
func (h *PurchaseHandler) PurchaseKey(c echo.Context) error {
	userID, err := tokenUserID(c)
	if err != nil {
		return err
	}

	var body PurchaseKeyRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.purchaseService.PurchaseKey(c.Request().Context(), &purchaseapp.PurchaseKeyRequest{
		UserID:         userID,
		Game:           body.Game,
		Duration:       body.Duration,
		IdempotencyKey: c.Request().Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, PurchaseKeyResponse{
		PurchaseID:   resp.PurchaseID,
		KeyID:        resp.KeyID,
		Key:          resp.KeyContent,
		Game:         resp.Game,
		Duration:     resp.Duration,
		Price:        formatInt(resp.Price),
		BalanceAfter: formatInt(resp.BalanceAfter),
		CreatedAt:    formatTime(resp.CreatedAt),
		Replayed:     resp.Replayed,
	})
}
