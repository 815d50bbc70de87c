package stock

// StockItem SKUごとの在庫数
type StockItem struct {
	Game      string
	Duration  string
	Available int
}

// StockReport 在庫レポート
type StockReport struct {
	Items  []StockItem
	ByGame map[string]map[string]int // game => duration => 在庫数
	Total  int
	Cached bool
}
