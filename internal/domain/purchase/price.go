package purchase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultPrices 既定の価格表（期間 => 価格）
var DefaultPrices = map[string]int64{
	"1-day":  100,
	"3-day":  250,
	"7-day":  500,
	"14-day": 900,
	"30-day": 1800,
}

// PriceTable 期間ごとの固定価格表
type PriceTable struct {
	prices map[string]int64
}

// NewPriceTable 新しいPriceTableを作成
func NewPriceTable(prices map[string]int64) (*PriceTable, error) {
	if len(prices) == 0 {
		return nil, ErrInvalidPrice
	}
	copied := make(map[string]int64, len(prices))
	for duration, price := range prices {
		if strings.TrimSpace(duration) == "" || price <= 0 {
			return nil, fmt.Errorf("%w: %q=%d", ErrInvalidPrice, duration, price)
		}
		copied[duration] = price
	}
	return &PriceTable{prices: copied}, nil
}

// ParsePriceTable "1-day:100,3-day:250" 形式の文字列から価格表を作成
func ParsePriceTable(s string) (*PriceTable, error) {
	prices := make(map[string]int64)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: malformed entry %q", ErrInvalidPrice, entry)
		}
		price, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed price %q", ErrInvalidPrice, entry)
		}
		prices[strings.TrimSpace(parts[0])] = price
	}
	return NewPriceTable(prices)
}

// Price 期間の価格を返す。価格表にない期間はErrUnknownDuration
func (t *PriceTable) Price(duration string) (int64, error) {
	price, ok := t.prices[duration]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownDuration, duration)
	}
	return price, nil
}

// Durations 価格表の期間一覧を価格の昇順で返す
func (t *PriceTable) Durations() []string {
	durations := make([]string, 0, len(t.prices))
	for d := range t.prices {
		durations = append(durations, d)
	}
	sort.Slice(durations, func(i, j int) bool {
		if t.prices[durations[i]] == t.prices[durations[j]] {
			return durations[i] < durations[j]
		}
		return t.prices[durations[i]] < t.prices[durations[j]]
	})
	return durations
}
