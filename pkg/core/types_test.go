package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderSide_String(t *testing.T) {
	tests := []struct {
		name string
		side OrderSide
		want string
	}{
		{"buy", SideBuy, "buy"},
		{"sell", SideSell, "sell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.side.String())
		})
	}
}

func TestParseOrderSide(t *testing.T) {
	tests := []struct {
		input string
		want  OrderSide
	}{
		{"buy", SideBuy},
		{"BUY", SideBuy},
		{"sell", SideSell},
		{"SELL", SideSell},
		{"Sell", SideSell},
		{"", SideBuy},
		{"hold", SideBuy},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrderSide(tt.input))
		})
	}
}

func TestOrderSide_JSON(t *testing.T) {
	data, err := SideSell.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"sell"`, string(data))

	var side OrderSide
	require.NoError(t, side.UnmarshalJSON([]byte(`"SELL"`)))
	assert.Equal(t, SideSell, side)
}

func TestOrderType_String(t *testing.T) {
	assert.Equal(t, "market", TypeMarket.String())
	assert.Equal(t, "limit", TypeLimit.String())
}

func TestParseOrderType(t *testing.T) {
	tests := []struct {
		input string
		want  OrderType
	}{
		{"limit", TypeLimit},
		{"LIMIT", TypeLimit},
		{"market", TypeMarket},
		{"MARKET", TypeMarket},
		{"", TypeMarket},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrderType(tt.input))
		})
	}
}

func TestOrderStatus_String(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		want   string
	}{
		{"open", StatusOpen, "open"},
		{"closed", StatusClosed, "closed"},
		{"canceled", StatusCanceled, "canceled"},
		{"rejected", StatusRejected, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestOrderStatus_ZeroValueIsOpen(t *testing.T) {
	var status OrderStatus
	assert.Equal(t, StatusOpen, status)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusOpen.IsTerminal())
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
}

func TestOrderStatus_JSON(t *testing.T) {
	data, err := StatusCanceled.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"canceled"`, string(data))

	var status OrderStatus
	require.NoError(t, status.UnmarshalJSON([]byte(`"rejected"`)))
	assert.Equal(t, StatusRejected, status)
}

func TestISO8601(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:00.000Z", ISO8601(0))
	assert.Equal(t, "2023-07-22T04:26:40.000Z", ISO8601(1690000000000))
	assert.Equal(t, "2023-07-22T04:26:40.123Z", ISO8601(1690000000123))
}
