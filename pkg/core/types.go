package core

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase an asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell an asset.
	SideSell
)

// String returns the string representation of the order side ("buy" or "sell").
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// ParseOrderSide converts an upstream side string to an OrderSide.
// The match is case-insensitive; anything that is not "sell" is treated as a buy.
func ParseOrderSide(s string) OrderSide {
	if strings.EqualFold(s, "sell") {
		return SideSell
	}
	return SideBuy
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both uppercase and lowercase formats.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"BUY"`, `"buy"`, `"Buy"`:
		*s = SideBuy
	case `"SELL"`, `"sell"`, `"Sell"`:
		*s = SideSell
	}
	return nil
}

// OrderType represents the type of order to place on an exchange.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeMarket executes immediately at the best available price.
	TypeMarket OrderType = iota
	// TypeLimit executes at a specified price or better.
	TypeLimit
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{"market", "limit"}[t]
}

// ParseOrderType converts an upstream type string to an OrderType.
// The match is case-insensitive; unrecognized values default to market.
func ParseOrderType(s string) OrderType {
	if strings.EqualFold(s, "limit") {
		return TypeLimit
	}
	return TypeMarket
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
// It accepts both uppercase and lowercase formats.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"MARKET"`, `"market"`, `"Market"`:
		*t = TypeMarket
	case `"LIMIT"`, `"limit"`, `"Limit"`:
		*t = TypeLimit
	}
	return nil
}

// OrderStatus represents the current state of an order.
// The zero value is StatusOpen, which is also the default applied when the
// venue reports no status at all.
type OrderStatus int

// Order status constants define the lifecycle state of an order.
const (
	// StatusOpen indicates the order is live on the exchange.
	StatusOpen OrderStatus = iota
	// StatusClosed indicates the order has been completely executed.
	StatusClosed
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
	// StatusRejected indicates the order was rejected by the exchange.
	StatusRejected
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"open", "closed", "canceled", "rejected"}[s]
}

// IsTerminal returns true if the order is in a terminal state (no further changes possible).
func (s OrderStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCanceled || s == StatusRejected
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderStatus.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"open"`, `"OPEN"`:
		*s = StatusOpen
	case `"closed"`, `"CLOSED"`:
		*s = StatusClosed
	case `"canceled"`, `"CANCELED"`:
		*s = StatusCanceled
	case `"rejected"`, `"REJECTED"`:
		*s = StatusRejected
	}
	return nil
}

// LimitRange is a nullable min/max bound on an order quantity.
type LimitRange struct {
	Min *apd.Decimal `json:"min,omitempty"`
	Max *apd.Decimal `json:"max,omitempty"`
}

// MarketLimits holds the trading limits of a market, per dimension.
type MarketLimits struct {
	// Amount bounds the base-currency quantity of an order.
	Amount LimitRange `json:"amount"`
	// Price bounds the limit price of an order.
	Price LimitRange `json:"price"`
	// Cost bounds the quote-currency value of an order.
	Cost LimitRange `json:"cost"`
}

// Market describes a trading pair listed on the exchange.
// Symbol is always "BASE/QUOTE"; ID is the same string with the separator removed.
type Market struct {
	// ID is the exchange-native market identifier.
	ID string `json:"id"`
	// Symbol is the unified "BASE/QUOTE" pair.
	Symbol string `json:"symbol"`
	// Base is the asset being traded.
	Base string `json:"base"`
	// Quote is the asset the price is denominated in.
	Quote string `json:"quote"`
	// Taker is the taker fee as a fraction (0.001 = 0.1%).
	Taker *apd.Decimal `json:"taker,omitempty"`
	// Maker is the maker fee as a fraction.
	Maker *apd.Decimal `json:"maker,omitempty"`
	// Limits are the venue's trading limits for this pair.
	Limits MarketLimits `json:"limits"`
	// Active reports whether at least one side of trading is enabled.
	Active bool `json:"active"`
	// Percentage reports that fees are quoted in percentage terms.
	Percentage bool `json:"percentage"`
	// Info retains the raw upstream record for this market.
	Info map[string]any `json:"info,omitempty"`
}

// Ticker represents market statistics for a trading pair.
// Every numeric field is nil when the venue omits it.
type Ticker struct {
	// Symbol is the trading pair identifier (e.g., "BTC/USDT").
	Symbol string `json:"symbol,omitempty"`
	// Price is the current price.
	Price *apd.Decimal `json:"price,omitempty"`
	// Last is the price of the most recent trade.
	Last *apd.Decimal `json:"last,omitempty"`
	// Close is the most recent closing price.
	Close *apd.Decimal `json:"close,omitempty"`
	// High is the highest price in the window.
	High *apd.Decimal `json:"high,omitempty"`
	// Low is the lowest price in the window.
	Low *apd.Decimal `json:"low,omitempty"`
	// Price24h is the price 24 hours ago.
	Price24h *apd.Decimal `json:"price24h,omitempty"`
	// Volume is the current trading volume.
	Volume *apd.Decimal `json:"volume,omitempty"`
	// Volume24h is the trading volume over the last 24 hours.
	Volume24h *apd.Decimal `json:"volume24h,omitempty"`
}

// TradeFee is the fee charged for a single trade.
type TradeFee struct {
	// Cost is the fee amount, zero when the venue reports none.
	Cost apd.Decimal `json:"cost"`
	// Currency is the asset the fee is denominated in.
	Currency string `json:"currency"`
	// Rate is the fee rate applied, zero when unknown.
	Rate apd.Decimal `json:"rate"`
}

// Trade represents a single executed trade.
type Trade struct {
	// ID is the exchange-assigned trade identifier.
	ID string `json:"id"`
	// OrderID links this trade to its parent order.
	OrderID string `json:"order,omitempty"`
	// Timestamp is the execution time in epoch milliseconds, 0 when unknown.
	Timestamp int64 `json:"timestamp,omitempty"`
	// Datetime is the ISO-8601 form of Timestamp, empty when unknown.
	Datetime string `json:"datetime,omitempty"`
	// Symbol is the trading pair for this trade.
	Symbol string `json:"symbol"`
	// Side indicates whether this was a buy or sell.
	Side OrderSide `json:"side"`
	// Price is the execution price.
	Price *apd.Decimal `json:"price,omitempty"`
	// Amount is the base-currency quantity executed.
	Amount *apd.Decimal `json:"amount,omitempty"`
	// Cost is Price*Amount in quote currency, nil when either is unknown.
	Cost *apd.Decimal `json:"cost,omitempty"`
	// Fee is the trading fee charged.
	Fee TradeFee `json:"fee"`
	// Info retains the raw upstream record.
	Info map[string]any `json:"info,omitempty"`
}

// Order represents an exchange order in unified form.
// Quantities are nil when the venue did not report enough to derive them.
type Order struct {
	// ID is the exchange-assigned order identifier.
	ID string `json:"id,omitempty"`
	// Timestamp is the order time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Datetime is the ISO-8601 form of Timestamp.
	Datetime string `json:"datetime,omitempty"`
	// LastTradeTimestamp is never reported by this venue and stays 0.
	LastTradeTimestamp int64 `json:"lastTradeTimestamp,omitempty"`
	// Symbol is the trading pair for this order.
	Symbol string `json:"symbol,omitempty"`
	// Type defines how the order executes.
	Type OrderType `json:"type"`
	// Side indicates whether this is a buy or sell order.
	Side OrderSide `json:"side"`
	// Price is the limit price, nil for unpriced market orders.
	Price *apd.Decimal `json:"price,omitempty"`
	// Amount is the requested base-currency quantity.
	Amount *apd.Decimal `json:"amount,omitempty"`
	// Filled is the executed base-currency quantity.
	Filled *apd.Decimal `json:"filled,omitempty"`
	// Remaining is max(Amount-Filled, 0), nil unless both are known.
	Remaining *apd.Decimal `json:"remaining,omitempty"`
	// Cost is Price*Filled in quote currency.
	Cost *apd.Decimal `json:"cost,omitempty"`
	// Average is the execution average price, Cost/Filled.
	Average *apd.Decimal `json:"average,omitempty"`
	// Status is the current state of the order.
	Status OrderStatus `json:"status"`
	// Fee is never reported by this venue and stays nil.
	Fee *TradeFee `json:"fee,omitempty"`
	// Trades is never reported by this venue and stays nil.
	Trades []Trade `json:"trades,omitempty"`
	// Info retains the raw upstream record.
	Info map[string]any `json:"info,omitempty"`
}

// Balance represents the account balance of a single asset.
type Balance struct {
	// Free is the balance available for trading.
	Free *apd.Decimal `json:"free,omitempty"`
	// Used is the balance locked in open orders.
	Used *apd.Decimal `json:"used,omitempty"`
	// Total is the full balance, free plus used.
	Total *apd.Decimal `json:"total,omitempty"`
}

// Balances maps asset symbols to their balances and retains the raw payload.
type Balances struct {
	// Info is the raw upstream balances payload.
	Info any `json:"info,omitempty"`
	// Assets is keyed by asset symbol (e.g., "BTC").
	Assets map[string]Balance `json:"assets"`
}

// OHLCV is a single candlestick row.
type OHLCV struct {
	// Timestamp is the candle open time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Open is the price at the start of the period.
	Open *apd.Decimal `json:"open,omitempty"`
	// High is the highest price during the period.
	High *apd.Decimal `json:"high,omitempty"`
	// Low is the lowest price during the period.
	Low *apd.Decimal `json:"low,omitempty"`
	// Close is the price at the end of the period.
	Close *apd.Decimal `json:"close,omitempty"`
	// Volume is the total trading volume during the period.
	Volume *apd.Decimal `json:"volume,omitempty"`
}

// ISO8601 formats an epoch-millisecond timestamp as an ISO-8601 UTC string.
func ISO8601(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
