package exchange

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"quadx/pkg/core"
)

// Exchange defines the unified interface for interacting with a venue.
// Implementations translate the venue's REST dialect into the canonical
// data model; the framework consumes that model uniformly across venues.
type Exchange interface {
	Name() string
	Version() string

	// LoadMarkets fetches and caches the tradable markets. Subsequent calls
	// return the cached list.
	LoadMarkets(ctx context.Context) ([]core.Market, error)
	// GetMarkets always fetches a fresh market list and refreshes the cache.
	GetMarkets(ctx context.Context) ([]core.Market, error)

	GetTicker(ctx context.Context, symbol string) (*core.Ticker, error)
	GetOHLCV(ctx context.Context, symbol string, opts ...Option) ([]core.OHLCV, error)

	GetMyTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error)
	GetBalances(ctx context.Context) (*core.Balances, error)
	PlaceOrder(ctx context.Context, req *OrderRequest) (*core.Order, error)

	Close() error
}

// OrderRequest contains the parameters required to place a new order.
type OrderRequest struct {
	// Symbol is the unified "BASE/QUOTE" pair.
	Symbol string
	// Side is the order direction.
	Side core.OrderSide
	// Amount is the order quantity.
	Amount apd.Decimal
	// Price is the optional limit price; nil places a market order.
	Price *apd.Decimal
}
