package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StockHandler 在庫レポートハンドラー
type StockHandler struct {
	stockService StockService
}

// NewStockHandler 新しいStockHandlerを作成
func NewStockHandler(stockService StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// GetStockReport 在庫レポート取得ハンドラー
// @Summary 在庫数を取得
// @Description ゲーム・期間ごとの未使用キー数を返します
// @Tags stock
// @Produce json
// @Security Bearer
// @Success 200 {object} StockReportResponse "取得成功"
// @Router /stock [get]
func (h *StockHandler) GetStockReport(c echo.Context) error {
	report, err := h.stockService.GetStockReport(c.Request().Context())
	if err != nil {
		return err
	}

	items := make([]StockItemResponse, 0, len(report.Items))
	for _, it := range report.Items {
		items = append(items, StockItemResponse{Game: it.Game, Duration: it.Duration, Available: it.Available})
	}
	byGame := report.ByGame
	if byGame == nil {
		byGame = map[string]map[string]int{}
	}

	return c.JSON(http.StatusOK, StockReportResponse{
		Items:  items,
		ByGame: byGame,
		Total:  report.Total,
	})
}
