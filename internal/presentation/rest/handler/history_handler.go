package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	historyapp "keyshop-server/internal/application/history"
)

// HistoryHandler 履歴関連ハンドラー
type HistoryHandler struct {
	historyService HistoryService
}

// NewHistoryHandler 新しいHistoryHandlerを作成
func NewHistoryHandler(historyService HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// GetPurchaseHistory 購入履歴取得ハンドラー（ユーザーAPI用）
// @Summary 購入履歴を取得
// @Description 自分の購入履歴を新しい順に取得します
// @Tags history
// @Produce json
// @Security Bearer
// @Param limit query int false "取得件数（0または未指定で既定値、上限あり）"
// @Success 200 {object} PurchaseHistoryResponse "取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 403 {object} ErrorResponse "BAN済み"
// @Router /me/purchases [get]
func (h *HistoryHandler) GetPurchaseHistory(c echo.Context) error {
	userID, err := tokenUserID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}

	resp, err := h.historyService.GetHistory(c.Request().Context(), &historyapp.GetHistoryRequest{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	items := make([]PurchaseItem, 0, len(resp.Purchases))
	for _, p := range resp.Purchases {
		items = append(items, PurchaseItem{
			PurchaseID: p.PurchaseID,
			KeyID:      p.KeyID,
			Key:        p.KeyContent,
			Game:       p.Game,
			Duration:   p.Duration,
			Price:      formatInt(p.Price),
			CreatedAt:  formatTime(p.CreatedAt),
		})
	}

	return c.JSON(http.StatusOK, PurchaseHistoryResponse{
		UserID:    resp.UserID,
		Purchases: items,
		Limit:     resp.Limit,
	})
}

// GetTransactionHistoryAdmin 残高変動履歴取得ハンドラー（管理API用）
// @Summary 残高変動履歴を取得（管理API）
// @Tags admin
// @Produce json
// @Param user_id path string true "ユーザーID"
// @Param X-API-Key header string true "APIキー"
// @Param limit query int false "取得件数"
// @Param offset query int false "オフセット"
// @Param transaction_type query string false "種類でフィルタ（grant/consume/refund/referral）"
// @Success 200 {object} TransactionHistoryResponse "取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/users/{user_id}/transactions [get]
func (h *HistoryHandler) GetTransactionHistoryAdmin(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}

	resp, err := h.historyService.GetBalanceHistory(c.Request().Context(), &historyapp.GetBalanceHistoryRequest{
		UserID:          userID,
		Limit:           limit,
		Offset:          offset,
		TransactionType: c.QueryParam("transaction_type"),
	})
	if err != nil {
		return err
	}

	items := make([]TransactionItem, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		items = append(items, TransactionItem{
			TransactionID:   t.TransactionID(),
			TransactionType: t.TransactionType().String(),
			Amount:          formatInt(t.Amount()),
			BalanceBefore:   formatInt(t.BalanceBefore()),
			BalanceAfter:    formatInt(t.BalanceAfter()),
			Status:          t.Status().String(),
			ReferenceID:     t.ReferenceID(),
			CreatedAt:       formatTime(t.CreatedAt()),
		})
	}

	return c.JSON(http.StatusOK, TransactionHistoryResponse{
		Transactions: items,
		Limit:        resp.Limit,
		Offset:       resp.Offset,
	})
}
