package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpGetMarkets, "GET_MARKETS"},
		{OpGetTicker, "GET_TICKER"},
		{OpGetOHLCV, "GET_OHLCV"},
		{OpGetMyTrades, "GET_MY_TRADES"},
		{OpGetBalances, "GET_BALANCES"},
		{OpPlaceOrder, "PLACE_ORDER"},
		{Operation(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}
