package key

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshop-server/internal/domain/errs"
)

func TestNewSKU(t *testing.T) {
	tests := []struct {
		name     string
		game     string
		duration string
		want     SKU
		wantErr  error
	}{
		{name: "正常系: 前後の空白を除去", game: " pubg ", duration: "1-day ", want: SKU{Game: "pubg", Duration: "1-day"}},
		{name: "異常系: 空のゲーム", game: "", duration: "1-day", wantErr: ErrInvalidGame},
		{name: "異常系: 空の期間", game: "pubg", duration: "  ", wantErr: ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSKU(tt.game, tt.duration)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "pubg/1-day", got.String())
		})
	}
}

func TestNewKey(t *testing.T) {
	sku := SKU{Game: "pubg", Duration: "1-day"}

	tests := []struct {
		name    string
		keyID   string
		content string
		want    string
		wantErr error
	}{
		{name: "正常系: 6文字", keyID: "k1", content: "ABCDEF", want: "ABCDEF"},
		{name: "正常系: 前後の空白を除去", keyID: "k1", content: "  ABC-123-XYZ \n", want: "ABC-123-XYZ"},
		{name: "異常系: 5文字", keyID: "k1", content: "ABCDE", wantErr: ErrInvalidContent},
		{name: "異常系: 空白で5文字以下", keyID: "k1", content: "  ABC  ", wantErr: ErrInvalidContent},
		{name: "異常系: 空のID", keyID: "", content: "ABCDEFG", wantErr: ErrInvalidKeyID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewKey(tt.keyID, sku, tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Content())
			assert.Equal(t, "pubg", got.Game())
			assert.Equal(t, "1-day", got.Duration())
			assert.False(t, got.IsUsed())
			assert.Nil(t, got.UsedBy())
		})
	}
}

func TestKey_Claim(t *testing.T) {
	k := MustNewKey("k1", SKU{Game: "pubg", Duration: "1-day"}, "ABCDEFG")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, k.Claim("user1", at))
	assert.True(t, k.IsUsed())
	require.NotNil(t, k.UsedBy())
	assert.Equal(t, "user1", *k.UsedBy())
	assert.Equal(t, at, *k.UsedAt())

	err := k.Claim("user2", at)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	assert.Equal(t, "user1", *k.UsedBy())
}
