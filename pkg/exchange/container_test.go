package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quadx/pkg/core"
)

type mockExchange struct {
	name string
}

func (m *mockExchange) Name() string    { return m.name }
func (m *mockExchange) Version() string { return "1" }
func (m *mockExchange) LoadMarkets(ctx context.Context) ([]core.Market, error) {
	return nil, nil
}
func (m *mockExchange) GetMarkets(ctx context.Context) ([]core.Market, error) {
	return nil, nil
}
func (m *mockExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	return nil, nil
}
func (m *mockExchange) GetOHLCV(ctx context.Context, symbol string, opts ...Option) ([]core.OHLCV, error) {
	return nil, nil
}
func (m *mockExchange) GetMyTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error) {
	return nil, nil
}
func (m *mockExchange) GetBalances(ctx context.Context) (*core.Balances, error) {
	return nil, nil
}
func (m *mockExchange) PlaceOrder(ctx context.Context, req *OrderRequest) (*core.Order, error) {
	return nil, nil
}
func (m *mockExchange) Close() error { return nil }

func TestContainer_RegisterAndGet(t *testing.T) {
	c := NewContainer()
	ex := &mockExchange{name: "quadency"}

	c.Register("quadency", ex)

	got, err := c.Get("quadency")
	require.NoError(t, err)
	assert.Same(t, ex, got.(*mockExchange))
}

func TestContainer_GetUnknown(t *testing.T) {
	c := NewContainer()

	_, err := c.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestContainer_Names(t *testing.T) {
	c := NewContainer()
	c.Register("alpha", &mockExchange{name: "alpha"})
	c.Register("beta", &mockExchange{name: "beta"})

	assert.ElementsMatch(t, []string{"alpha", "beta"}, c.Names())
}

func TestContainer_Exists(t *testing.T) {
	c := NewContainer()
	assert.False(t, c.Exists("quadency"))

	c.Register("quadency", &mockExchange{name: "quadency"})
	assert.True(t, c.Exists("quadency"))
}

func TestContainer_Unregister(t *testing.T) {
	c := NewContainer()
	c.Register("quadency", &mockExchange{name: "quadency"})

	c.Unregister("quadency")
	assert.False(t, c.Exists("quadency"))
}

func TestContainer_RegisterOverwrites(t *testing.T) {
	c := NewContainer()
	first := &mockExchange{name: "quadency"}
	second := &mockExchange{name: "quadency"}

	c.Register("quadency", first)
	c.Register("quadency", second)

	got, err := c.Get("quadency")
	require.NoError(t, err)
	assert.Same(t, second, got.(*mockExchange))
}

func TestApplyOptions(t *testing.T) {
	o := ApplyOptions(
		WithLimit(100),
		WithTimeframe("5m"),
		WithSince(1700000000000),
		WithParams(core.Params{"extra": "x"}),
	)

	assert.Equal(t, 100, o.Limit)
	assert.Equal(t, "5m", o.Timeframe)
	assert.Equal(t, int64(1700000000000), o.Since)
	assert.Equal(t, "x", o.Params["extra"])
}

func TestApplyOptions_Defaults(t *testing.T) {
	o := ApplyOptions()
	assert.Zero(t, o.Limit)
	assert.Empty(t, o.Timeframe)
	assert.Zero(t, o.Since)
	assert.Nil(t, o.Params)
}
