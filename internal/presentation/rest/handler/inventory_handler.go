package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	inventoryapp "keyshop-server/internal/application/inventory"
)

// maxBulkBodyBytes 一括追加で受け付ける本文の上限
const maxBulkBodyBytes = 4 << 20

// InventoryHandler 在庫キー関連ハンドラー
type InventoryHandler struct {
	inventoryService InventoryService
}

// NewInventoryHandler 新しいInventoryHandlerを作成
func NewInventoryHandler(inventoryService InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// AddKey キー追加ハンドラー（管理API用）
// @Summary キーを1件追加（管理API）
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body KeyItemRequest true "追加するキー"
// @Success 201 {object} AddKeyResponse "追加成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 409 {object} ErrorResponse "重複"
// @Router /admin/keys [post]
func (h *InventoryHandler) AddKey(c echo.Context) error {
	var body KeyItemRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.inventoryService.AddKey(c.Request().Context(), inventoryapp.KeyItem{
		Game:     body.Game,
		Duration: body.Duration,
		Content:  body.Content,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, AddKeyResponse{
		KeyID:    resp.KeyID,
		Game:     resp.Game,
		Duration: resp.Duration,
	})
}

// BulkAddKeys キー一括追加ハンドラー（管理API用）
// @Summary キーを一括追加（管理API）
// @Description JSONのitems配列、またはtext/plainの「game|duration|content」行形式を受け付けます。
// @Description 不正な行はスキップして件数を返します
// @Tags admin
// @Accept json,plain
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body BulkAddKeysRequest true "一括追加リクエスト"
// @Success 200 {object} BulkAddKeysResponse "処理結果"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/keys/bulk [post]
func (h *InventoryHandler) BulkAddKeys(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		resp *inventoryapp.BulkAddKeysResponse
		err  error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMETextPlain) {
		raw, readErr := io.ReadAll(io.LimitReader(c.Request().Body, maxBulkBodyBytes+1))
		if readErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
		}
		if len(raw) > maxBulkBodyBytes {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
		}
		resp, err = h.inventoryService.BulkAddKeysFromText(ctx, string(raw))
	} else {
		var body BulkAddKeysRequest
		if bindErr := c.Bind(&body); bindErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		items := make([]inventoryapp.KeyItem, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, inventoryapp.KeyItem{Game: it.Game, Duration: it.Duration, Content: it.Content})
		}
		resp, err = h.inventoryService.BulkAddKeys(ctx, items)
	}
	if err != nil {
		return err
	}

	failures := make([]BulkFailureItem, 0, len(resp.Failures))
	for _, f := range resp.Failures {
		failures = append(failures, BulkFailureItem{Line: f.Line, Reason: f.Reason})
	}
	keyIDs := resp.KeyIDs
	if keyIDs == nil {
		keyIDs = []string{}
	}

	return c.JSON(http.StatusOK, BulkAddKeysResponse{
		Added:    resp.Added,
		Rejected: resp.Rejected,
		KeyIDs:   keyIDs,
		Failures: failures,
	})
}

// SearchKey キー検索ハンドラー（管理API用）
// @Summary キー内容で検索（管理API）
// @Description キー内容の完全一致で検索し、使用状況を返します
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param content query string true "キー内容"
// @Success 200 {object} KeyResponse "検索成功"
// @Failure 404 {object} ErrorResponse "見つからない"
// @Router /admin/keys/search [get]
func (h *InventoryHandler) SearchKey(c echo.Context) error {
	view, err := h.inventoryService.SearchKey(c.Request().Context(), c.QueryParam("content"))
	if err != nil {
		return err
	}

	resp := KeyResponse{
		KeyID:     view.KeyID,
		Game:      view.Game,
		Duration:  view.Duration,
		Content:   view.Content,
		Used:      view.Used,
		UsedBy:    view.UsedBy,
		CreatedAt: formatTime(view.CreatedAt),
	}
	if view.UsedAt != nil {
		usedAt := formatTime(*view.UsedAt)
		resp.UsedAt = &usedAt
	}
	return c.JSON(http.StatusOK, resp)
}
