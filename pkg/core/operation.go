package core

// Operation represents a type of action that can be performed on an exchange.
type Operation int

// Operation constants define all supported exchange operations.
const (
	// OpGetMarkets retrieves the list of tradable markets.
	OpGetMarkets Operation = iota
	// OpGetTicker retrieves current market ticker data for a symbol.
	OpGetTicker
	// OpGetOHLCV retrieves candlestick/OHLCV data.
	OpGetOHLCV
	// OpGetMyTrades retrieves the account's trade history.
	OpGetMyTrades
	// OpGetBalances retrieves account balance information.
	OpGetBalances
	// OpPlaceOrder submits a new order to the exchange.
	OpPlaceOrder
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	names := [...]string{
		"GET_MARKETS",
		"GET_TICKER",
		"GET_OHLCV",
		"GET_MY_TRADES",
		"GET_BALANCES",
		"PLACE_ORDER",
	}
	if o < 0 || int(o) >= len(names) {
		return "UNKNOWN"
	}
	return names[o]
}
