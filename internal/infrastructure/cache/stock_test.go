package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshop-server/internal/domain/key"
)

func TestEncodeDecodeStock(t *testing.T) {
	entries := []key.StockEntry{
		{SKU: key.SKU{Game: "pubg", Duration: "1-day"}, Available: 3},
		{SKU: key.SKU{Game: "game|with|pipes", Duration: "7-day"}, Available: 0},
	}

	data, err := encodeStock(entries)
	require.NoError(t, err)

	got, err := decodeStock(data)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestEncodeStock_Empty(t *testing.T) {
	data, err := encodeStock(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	got, err := decodeStock(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeStock_Invalid(t *testing.T) {
	_, err := decodeStock([]byte("not json"))
	assert.Error(t, err)
}
