package handler

// StockItemResponse SKUごとの在庫
// @Description SKUごとの在庫
type StockItemResponse struct {
	Game      string `json:"game" example:"pubg"`
	Duration  string `json:"duration" example:"7-day"`
	Available int    `json:"available" example:"12"`
}

// StockReportResponse 在庫レポート
// @Description 在庫レポート（ゲーム名順、価格順）
type StockReportResponse struct {
	Items  []StockItemResponse       `json:"items"`
	ByGame map[string]map[string]int `json:"by_game"`
	Total  int                       `json:"total" example:"42"`
}
