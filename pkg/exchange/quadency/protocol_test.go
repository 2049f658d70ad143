package quadency

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quadx/pkg/core"
)

var _ core.Protocol = (*Protocol)(nil)

func fixedNonce(ms int64) core.NonceSource {
	return core.NonceFunc(func() int64 { return ms })
}

func TestProtocol_Name(t *testing.T) {
	p := NewProtocol()
	assert.Equal(t, "quadency", p.Name())
}

func TestProtocol_Version(t *testing.T) {
	p := NewProtocol()
	assert.Equal(t, "1", p.Version())
}

func TestProtocol_BaseURL(t *testing.T) {
	p := NewProtocol()
	assert.Equal(t, "https://quadency.com/api/v1/public/quadx", p.BaseURL(false, false))
	assert.Equal(t, "https://quadency.com/api/v1/private/quadx", p.BaseURL(true, false))
	assert.Equal(t, "https://staging.quadency.com/api/v1/public/quadx", p.BaseURL(false, true))
	assert.Equal(t, "https://staging.quadency.com/api/v1/private/quadx", p.BaseURL(true, true))
}

func TestProtocol_SupportedOperations(t *testing.T) {
	p := NewProtocol()

	expectedOps := []core.Operation{
		core.OpGetMarkets,
		core.OpGetTicker,
		core.OpGetOHLCV,
		core.OpGetMyTrades,
		core.OpGetBalances,
		core.OpPlaceOrder,
	}

	assert.ElementsMatch(t, expectedOps, p.SupportedOperations())
}

func TestProtocol_RateLimits(t *testing.T) {
	p := NewProtocol()
	limits := p.RateLimits()

	assert.Equal(t, 1, limits.RequestsPerSecond)
	assert.Equal(t, 1, limits.OrdersPerSecond)
	assert.Equal(t, 5, limits.Burst)
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		timeframe string
		seconds   int64
	}{
		{"1m", 60},
		{"5m", 300},
		{"15m", 900},
		{"30m", 1800},
		{"1h", 3600},
		{"4h", 14400},
		{"1d", 86400},
	}
	for _, tt := range tests {
		seconds, err := ParseTimeframe(tt.timeframe)
		require.NoError(t, err, tt.timeframe)
		assert.Equal(t, tt.seconds, seconds, tt.timeframe)
	}
}

func TestParseTimeframe_Unsupported(t *testing.T) {
	_, err := ParseTimeframe("2h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported timeframe")
}

func TestProtocol_BuildRequest_GetMarkets(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetMarkets, nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "markets", req.Path)
	assert.False(t, req.RequireAuth)
	assert.Empty(t, req.Query)
}

func TestProtocol_BuildRequest_GetTicker(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetTicker, core.Params{
		"pair": "BTC/USDT",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "ticker", req.Path)
	assert.Equal(t, "BTC/USDT", req.Query["pair"])
	assert.False(t, req.RequireAuth)
}

func TestProtocol_BuildRequest_GetTicker_MissingPair(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetTicker, core.Params{})
	require.Error(t, err)
	require.Nil(t, req)
	assert.Contains(t, err.Error(), "missing required parameter: pair")
}

func TestProtocol_BuildRequest_ForwardsExtraParams(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetTicker, core.Params{
		"pair":  "BTC/USDT",
		"depth": "50",
	})
	require.NoError(t, err)
	assert.Equal(t, "50", req.Query["depth"])
}

func TestProtocol_BuildRequest_GetMyTrades_ForwardsExtraParams(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetMyTrades, core.Params{
		"pairs":  "BTC/USDT",
		"cursor": "abc123",
		"empty":  "",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", req.Query["cursor"])
	assert.NotContains(t, req.Query, "empty")
}

func TestProtocol_BuildRequest_GetOHLCV(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetOHLCV, core.Params{
		"pair":      "BTC/USDT",
		"interval":  "5m",
		"startDate": "1700000000000",
		"endDate":   "1700001000000",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "ohlcv", req.Path)
	assert.Equal(t, "BTC/USDT", req.Query["pair"])
	assert.Equal(t, "5m", req.Query["interval"])
	assert.Equal(t, "1700000000000", req.Query["startDate"])
	assert.Equal(t, "1700001000000", req.Query["endDate"])
}

func TestProtocol_BuildRequest_GetOHLCV_DefaultInterval(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetOHLCV, core.Params{
		"pair": "BTC/USDT",
	})
	require.NoError(t, err)
	assert.Equal(t, "1h", req.Query["interval"])
}

func TestProtocol_BuildRequest_GetMyTrades(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetMyTrades, core.Params{
		"pairs": "BTC/USDT",
		"since": "1700000000000",
		"limit": "100",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "trades", req.Path)
	assert.True(t, req.RequireAuth)
	assert.Equal(t, "BTC/USDT", req.Query["pairs"])
	assert.Equal(t, "1700000000000", req.Query["since"])
	assert.Equal(t, "100", req.Query["limit"])
}

func TestProtocol_BuildRequest_GetMyTrades_MissingPairs(t *testing.T) {
	p := NewProtocol()

	_, err := p.BuildRequest(context.Background(), core.OpGetMyTrades, core.Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter: pairs")
}

func TestProtocol_BuildRequest_GetBalances(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpGetBalances, nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "balances", req.Path)
	assert.True(t, req.RequireAuth)
}

func TestProtocol_BuildRequest_PlaceOrder(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(context.Background(), core.OpPlaceOrder, core.Params{
		"pair":   "BTC/USDT",
		"side":   "buy",
		"amount": "0.5",
		"price":  "50000",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "order", req.Path)
	assert.True(t, req.RequireAuth)
	assert.Nil(t, req.Body)
	assert.Equal(t, "BTC/USDT", req.Query["pair"])
	assert.Equal(t, "buy", req.Query["side"])
	assert.Equal(t, "0.5", req.Query["amount"])
	assert.Equal(t, "50000", req.Query["price"])
}

func TestProtocol_BuildRequest_PlaceOrder_MissingSide(t *testing.T) {
	p := NewProtocol()

	_, err := p.BuildRequest(context.Background(), core.OpPlaceOrder, core.Params{
		"pair":   "BTC/USDT",
		"amount": "0.5",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter: side")
}

func TestProtocol_Sign_Public(t *testing.T) {
	p := NewProtocol()

	req := core.NewRequest(http.MethodGet, "ticker")
	req.SetQuery("pair", "BTC/USDT")

	require.NoError(t, p.Sign(req, core.Credentials{}, false))

	assert.Equal(t, "https://quadency.com/api/v1/public/quadx/ticker?pair=BTC%2FUSDT", req.URL)
	assert.Empty(t, req.Headers)
}

func TestProtocol_Sign_Public_Sandbox(t *testing.T) {
	p := NewProtocol()

	req := core.NewRequest(http.MethodGet, "markets")
	require.NoError(t, p.Sign(req, core.Credentials{}, true))
	assert.Equal(t, "https://staging.quadency.com/api/v1/public/quadx/markets", req.URL)
}

func TestProtocol_Sign_Private(t *testing.T) {
	p := NewProtocolWithNonce(fixedNonce(1700000000000))

	req := core.NewRequest(http.MethodGet, "trades")
	req.SetQuery("pairs", "BTC/USDT")
	req.SetRequireAuth(true)

	creds := core.Credentials{APIKey: "key-id", SecretKey: "topsecret"}
	require.NoError(t, p.Sign(req, creds, false))

	assert.Equal(t, "https://quadency.com/api/v1/private/quadx/trades?pairs=BTC%2FUSDT", req.URL)
	assert.Equal(t, "key-id", req.Headers["ACCESS-KEY"])
	assert.Equal(t, "1700000000000000", req.Headers["ACCESS-TIMESTAMP"])
	assert.Equal(t, "true", req.Headers["QUADX"])

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte("1700000000000000GET/api/v1/private/quadx/trades?pairs=BTC%2FUSDT"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["ACCESS-SIGN"])
}

func TestProtocol_Sign_Private_Deterministic(t *testing.T) {
	creds := core.Credentials{APIKey: "key-id", SecretKey: "topsecret"}

	sign := func() string {
		p := NewProtocolWithNonce(fixedNonce(1700000000000))
		req := core.NewRequest(http.MethodPost, "order")
		req.SetQuery("pair", "BTC/USDT")
		req.SetQuery("side", "sell")
		req.SetQuery("amount", "0.25")
		req.SetRequireAuth(true)
		require.NoError(t, p.Sign(req, creds, false))
		return req.Headers["ACCESS-SIGN"]
	}

	assert.Equal(t, sign(), sign())
}

func TestProtocol_Sign_Private_QueryOrderIsSorted(t *testing.T) {
	p := NewProtocolWithNonce(fixedNonce(1700000000000))

	req := core.NewRequest(http.MethodPost, "order")
	req.SetQuery("side", "sell")
	req.SetQuery("amount", "0.25")
	req.SetQuery("pair", "BTC/USDT")
	req.SetRequireAuth(true)

	creds := core.Credentials{APIKey: "key-id", SecretKey: "topsecret"}
	require.NoError(t, p.Sign(req, creds, false))

	assert.Equal(t,
		"https://quadency.com/api/v1/private/quadx/order?amount=0.25&pair=BTC%2FUSDT&side=sell",
		req.URL)
}

func TestProtocol_Sign_Private_SecretChangesSignature(t *testing.T) {
	signWith := func(secret string) string {
		p := NewProtocolWithNonce(fixedNonce(1700000000000))
		req := core.NewRequest(http.MethodGet, "balances")
		req.SetRequireAuth(true)
		require.NoError(t, p.Sign(req, core.Credentials{APIKey: "key-id", SecretKey: secret}, false))
		return req.Headers["ACCESS-SIGN"]
	}

	assert.NotEqual(t, signWith("alpha"), signWith("beta"))
}

func TestProtocol_Sign_Private_MissingSecret(t *testing.T) {
	p := NewProtocol()

	req := core.NewRequest(http.MethodGet, "balances")
	req.SetRequireAuth(true)

	err := p.Sign(req, core.Credentials{APIKey: "key-id"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
}

func TestProtocol_HandleErrors_EmptyBody(t *testing.T) {
	p := NewProtocol()
	assert.NoError(t, p.HandleErrors(500, nil))
}

func TestProtocol_HandleErrors_UnparseableBody(t *testing.T) {
	p := NewProtocol()
	assert.NoError(t, p.HandleErrors(502, []byte("<html>Bad Gateway</html>")))
}

func TestProtocol_HandleErrors_SuccessStatus(t *testing.T) {
	p := NewProtocol()
	assert.NoError(t, p.HandleErrors(200, []byte(`{"price":"50000"}`)))
}

func TestProtocol_HandleErrors_RateLimited(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{"error":{"code":4300,"message":"Too many requests"}}`)
	err := p.HandleErrors(429, body)
	require.Error(t, err)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypePermissionDenied, exErr.Type)
	assert.Equal(t, 429, exErr.StatusCode)
	assert.Equal(t, "4300", exErr.Code)
	assert.Contains(t, exErr.Message, "quadency")
	assert.Contains(t, exErr.Message, string(body))
	assert.True(t, core.IsPermissionDenied(err))
}

func TestProtocol_HandleErrors_BadRequestDefault(t *testing.T) {
	p := NewProtocol()

	err := p.HandleErrors(400, []byte(`{"error":{"message":"Incorrect parameters"}}`))
	require.Error(t, err)
	assert.True(t, core.IsBadRequest(err))
}

func TestProtocol_HandleErrors_AuthenticationDefault(t *testing.T) {
	p := NewProtocol()

	err := p.HandleErrors(401, []byte(`{"error":{"message":"Incorrect keys"}}`))
	require.Error(t, err)
	assert.True(t, core.IsAuthenticationError(err))

	err = p.HandleErrors(403, []byte(`{"message":"Forbidden"}`))
	require.Error(t, err)
	assert.True(t, core.IsAuthenticationError(err))
}

func TestProtocol_HandleErrors_ClockSkewMessage(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{"error":{"code":9999,"message":"ts value differs from the current time by more than 5 seconds"}}`)
	err := p.HandleErrors(400, body)
	require.Error(t, err)
	assert.True(t, core.IsAuthenticationError(err))
}

func TestProtocol_HandleErrors_BroadMatchOrder(t *testing.T) {
	p := NewProtocol()

	// A message matching more than one substring rule resolves to the
	// first rule in declaration order.
	body := []byte(`{"error":{"code":9999,"message":"ts value differs from the current time; Insufficient clock margin"}}`)
	err := p.HandleErrors(400, body)
	require.Error(t, err)
	assert.True(t, core.IsAuthenticationError(err))
}

func TestProtocol_HandleErrors_InsufficientFunds(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{"error":{"code":1002,"message":"Insufficient balance for order"}}`)
	err := p.HandleErrors(400, body)
	require.Error(t, err)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeInsufficientFunds, exErr.Type)
	assert.True(t, core.IsTerminalError(err))
}

func TestProtocol_HandleErrors_WholeBodyFallback(t *testing.T) {
	p := NewProtocol()

	err := p.HandleErrors(418, []byte(`{"code":"teapot","debugMessage":"short and stout"}`))
	require.Error(t, err)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeUnknown, exErr.Type)
	assert.Equal(t, "teapot", exErr.Code)
	assert.NotNil(t, exErr.RawError)
}

func TestProtocol_ParseResponse_ErrorStatusWithoutBody(t *testing.T) {
	p := NewProtocol()

	_, err := p.ParseResponse(core.OpGetTicker, 503, []byte("Service Unavailable"))
	require.Error(t, err)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeServerError, exErr.Type)
	assert.Equal(t, 503, exErr.StatusCode)
}

func TestProtocol_ParseResponse_Ticker(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{"price":"50000.5","last":"50000.5","high":"51000","low":"49000","volume":"123.45"}`)
	result, err := p.ParseResponse(core.OpGetTicker, 200, body)
	require.NoError(t, err)

	ticker, ok := result.(*core.Ticker)
	require.True(t, ok)
	assertDecimal(t, "50000.5", ticker.Price)
	assertDecimal(t, "50000.5", ticker.Last)
	assertDecimal(t, "51000", ticker.High)
	assertDecimal(t, "49000", ticker.Low)
	assertDecimal(t, "123.45", ticker.Volume)
	assert.Nil(t, ticker.Volume24h)
	assert.Nil(t, ticker.Price24h)
}

func TestProtocol_ParseResponse_UnsupportedOperation(t *testing.T) {
	p := NewProtocol()

	_, err := p.ParseResponse(core.Operation(99), 200, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported operation")
}

func TestImplodeParams(t *testing.T) {
	path, leftover := implodeParams("orders/{id}", core.Params{"id": "42", "pair": "BTC/USDT"})
	assert.Equal(t, "orders/42", path)
	assert.Equal(t, core.Params{"pair": "BTC/USDT"}, leftover)
}
