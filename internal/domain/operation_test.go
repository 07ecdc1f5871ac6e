package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperationKind(t *testing.T) {
	tests := []struct {
		raw      string
		expected OperationKind
	}{
		{"buy", OperationBuy},
		{"BUY", OperationBuy},
		{"Sell", OperationSell},
		{"buy to cover", OperationBuyToCover},
		{"Buy To Cover", OperationBuyToCover},
		{"  short sell ", OperationShortSell},
		{"SHORT SELL", OperationShortSell},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			kind, err := ParseOperationKind(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestParseOperationKind_Rejects(t *testing.T) {
	for _, raw := range []string{"transfer", "", "buy-to-cover", "shortsell", "b"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseOperationKind(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOperationKind)
			assert.Contains(t, err.Error(), "buy to cover")
		})
	}
}

func TestOperationKind_CanonicalStrings(t *testing.T) {
	assert.Equal(t, "buy", OperationBuy.String())
	assert.Equal(t, "sell", OperationSell.String())
	assert.Equal(t, "buy to cover", OperationBuyToCover.String())
	assert.Equal(t, "short sell", OperationShortSell.String())
	assert.Equal(t, "OperationKind(0)", OperationKind(0).String())
}

func TestOperationKind_Classes(t *testing.T) {
	assert.True(t, OperationBuy.IsBuyClass())
	assert.True(t, OperationBuyToCover.IsBuyClass())
	assert.True(t, OperationSell.IsSellClass())
	assert.True(t, OperationShortSell.IsSellClass())
	assert.False(t, OperationBuy.IsSellClass())
	assert.False(t, OperationShortSell.IsBuyClass())

	assert.Equal(t, 1.0, OperationBuy.Sign())
	assert.Equal(t, 1.0, OperationBuyToCover.Sign())
	assert.Equal(t, -1.0, OperationSell.Sign())
	assert.Equal(t, -1.0, OperationShortSell.Sign())
}

func TestOperationKind_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]OperationKind{"op": OperationBuyToCover})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"buy to cover"}`, string(data))

	var decoded struct {
		Op OperationKind `json:"op"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"op":"Short Sell"}`), &decoded))
	assert.Equal(t, OperationShortSell, decoded.Op)

	err = json.Unmarshal([]byte(`{"op":"transfer"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidOperationKind)

	_, err = json.Marshal(map[string]OperationKind{"op": OperationKind(42)})
	assert.Error(t, err)
}
