package quadency

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"quadx/pkg/core"
)

// API base URLs per endpoint visibility. Private endpoints live under a
// separate path prefix and require signed requests.
const (
	PublicURL  = "https://quadency.com/api/v1/public/quadx"
	PrivateURL = "https://quadency.com/api/v1/private/quadx"

	SandboxPublicURL  = "https://staging.quadency.com/api/v1/public/quadx"
	SandboxPrivateURL = "https://staging.quadency.com/api/v1/private/quadx"
)

// dialectHeader marks requests as speaking the QUADX API dialect.
const dialectHeader = "QUADX"

// timeframes maps unified candle intervals to the venue's minute codes.
var timeframes = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"4h":  "240",
	"1d":  "1440",
}

// ParseTimeframe returns the duration of a unified candle interval in
// seconds, or an error for intervals the venue does not support.
func ParseTimeframe(tf string) (int64, error) {
	code, ok := timeframes[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	minutes, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timeframe code: %w", err)
	}
	return minutes * 60, nil
}

// Protocol implements the core.Protocol interface for the Quadency exchange.
// It provides request building, signing, response normalization, and error
// translation for the QUADX REST dialect.
type Protocol struct {
	nonce      core.NonceSource
	normalizer *Normalizer

	// exact maps error codes, messages, and HTTP status-code strings to
	// typed errors; broad matches by substring against the error message,
	// first rule wins.
	exact map[string]core.ErrorType
	broad []broadRule
}

// broadRule pairs a message substring with the error type it implies.
// Rules are checked in declaration order so overlapping needles resolve
// deterministically.
type broadRule struct {
	needle  string
	errType core.ErrorType
}

// NewProtocol creates a Quadency protocol instance backed by the wall clock.
func NewProtocol() *Protocol {
	return NewProtocolWithNonce(core.NewNonce())
}

// NewProtocolWithNonce creates a Quadency protocol instance with an injected
// nonce source, so tests can drive signing deterministically.
func NewProtocolWithNonce(nonce core.NonceSource) *Protocol {
	return &Protocol{
		nonce:      nonce,
		normalizer: NewNormalizer(nonce),
		exact: map[string]core.ErrorType{
			"400": core.ErrorTypeBadRequest,
			"401": core.ErrorTypeAuthentication,
			"403": core.ErrorTypeAuthentication,
			"429": core.ErrorTypePermissionDenied,
		},
		broad: []broadRule{
			{"ts value differs from the current time", core.ErrorTypeAuthentication},
			{"Insufficient", core.ErrorTypeInsufficientFunds},
		},
	}
}

// Name returns the connector identifier "quadency".
func (p *Protocol) Name() string {
	return "quadency"
}

// Version returns the Quadency API version string.
func (p *Protocol) Version() string {
	return "1"
}

// BaseURL returns the base URL for the given endpoint visibility.
// Sandbox mode returns the staging URL.
func (p *Protocol) BaseURL(private, sandbox bool) string {
	switch {
	case private && sandbox:
		return SandboxPrivateURL
	case private:
		return PrivateURL
	case sandbox:
		return SandboxPublicURL
	default:
		return PublicURL
	}
}

// SupportedOperations returns the list of operations supported by this protocol.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpGetMarkets,
		core.OpGetTicker,
		core.OpGetOHLCV,
		core.OpGetMyTrades,
		core.OpGetBalances,
		core.OpPlaceOrder,
	}
}

// RateLimits returns the rate limit configuration for the Quadency API.
func (p *Protocol) RateLimits() core.RateLimitConfig {
	return core.RateLimitConfig{
		RequestsPerSecond: 1,
		OrdersPerSecond:   1,
		Burst:             5,
	}
}

// BuildRequest constructs a request envelope for the given operation.
// It validates required parameters and sets query parameters and weights.
func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpGetMarkets:
		return core.NewRequest(http.MethodGet, "markets"), nil
	case core.OpGetTicker:
		return p.buildGetTickerRequest(params)
	case core.OpGetOHLCV:
		return p.buildGetOHLCVRequest(params)
	case core.OpGetMyTrades:
		return p.buildGetMyTradesRequest(params)
	case core.OpGetBalances:
		req := core.NewRequest(http.MethodGet, "balances")
		req.SetRequireAuth(true)
		return req, nil
	case core.OpPlaceOrder:
		return p.buildPlaceOrderRequest(params)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}
}

// Sign finalizes the request envelope. The absolute URL is the visibility
// base plus the interpolated path plus the URL-encoded leftover query; for
// private requests it additionally computes the HMAC-SHA256 auth headers
// over timestamp+method+path exactly as sent.
func (p *Protocol) Sign(req *core.Request, creds core.Credentials, sandbox bool) error {
	path, query := implodeParams(req.Path, req.Query)

	u := p.BaseURL(req.RequireAuth, sandbox) + "/" + path
	if len(query) > 0 {
		u += "?" + encodeParams(query)
	}

	if req.RequireAuth {
		if creds.SecretKey == "" {
			return fmt.Errorf("secret key is required for signing")
		}

		ts := p.nonce.Next() * 1000
		strTs := strconv.FormatInt(ts, 10)

		// The signed path is everything after the host's .com segment,
		// query string included.
		_, apiPath, found := strings.Cut(u, ".com")
		if !found {
			return fmt.Errorf("signing URL %q lacks a .com host segment", u)
		}

		message := strTs + req.Method + apiPath
		req.SetHeader("ACCESS-KEY", creds.APIKey)
		req.SetHeader("ACCESS-SIGN", signHMAC(message, creds.SecretKey))
		req.SetHeader("ACCESS-TIMESTAMP", strTs)
		req.SetHeader(dialectHeader, "true")
	}

	req.URL = u
	return nil
}

// ParseResponse translates an HTTP response into the canonical type for the
// operation. Trades and orders parsed here carry the fallback fee currency;
// callers holding the market pass it to the Normalizer directly instead.
func (p *Protocol) ParseResponse(op core.Operation, statusCode int, body []byte) (any, error) {
	if err := p.HandleErrors(statusCode, body); err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, core.NewExchangeError(
			p.Name(),
			core.ErrorTypeServerError,
			statusCode,
			fmt.Sprintf("HTTP %d: %s", statusCode, string(body)),
		)
	}

	switch op {
	case core.OpGetMarkets:
		return p.normalizer.ParseMarkets(body)

	case core.OpGetTicker:
		var raw map[string]any
		if err := jsonAPI.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal ticker: %w", err)
		}
		return p.normalizer.ParseTicker(raw), nil

	case core.OpGetOHLCV:
		var rows []any
		if err := jsonAPI.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("unmarshal ohlcv: %w", err)
		}
		return p.normalizer.ParseOHLCVs(rows), nil

	case core.OpGetMyTrades:
		var raws []map[string]any
		if err := jsonAPI.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("unmarshal trades: %w", err)
		}
		return p.normalizer.ParseTrades(raws, nil), nil

	case core.OpGetBalances:
		var raws []map[string]any
		if err := jsonAPI.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("unmarshal balances: %w", err)
		}
		return p.normalizer.ParseBalances(raws), nil

	case core.OpPlaceOrder:
		var raw map[string]any
		if err := jsonAPI.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		return p.normalizer.ParseOrder(raw, nil), nil

	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}
}

// HandleErrors maps a 4xx/5xx response body to a typed error. Responses
// without a parseable JSON body return nil; the transport layer owns those
// failures. Every raised error embeds the connector id and the raw body.
func (p *Protocol) HandleErrors(statusCode int, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var response map[string]any
	if err := jsonAPI.Unmarshal(body, &response); err != nil {
		return nil
	}
	if statusCode < 400 {
		return nil
	}

	feedback := p.Name() + " " + string(body)

	errObj, ok := core.SafeMap(response, "error")
	if !ok {
		errObj = response
	}
	code, _ := core.SafeString2(errObj, "code", "status")
	message, _ := core.SafeString2(errObj, "message", "debugMessage")

	for _, rule := range p.broad {
		if message != "" && strings.Contains(message, rule.needle) {
			return p.typedError(rule.errType, statusCode, code, feedback, response)
		}
	}
	if errType, ok := p.exact[code]; ok {
		return p.typedError(errType, statusCode, code, feedback, response)
	}
	if errType, ok := p.exact[message]; ok {
		return p.typedError(errType, statusCode, code, feedback, response)
	}
	// Status-code defaults share the exact table, keyed by status string.
	if errType, ok := p.exact[strconv.Itoa(statusCode)]; ok {
		return p.typedError(errType, statusCode, code, feedback, response)
	}

	return p.typedError(core.ErrorTypeUnknown, statusCode, code, feedback, response)
}

func (p *Protocol) typedError(errType core.ErrorType, statusCode int, code, feedback string, raw any) error {
	return core.NewExchangeErrorWithCode(p.Name(), errType, statusCode, code, feedback).WithRaw(raw)
}

func (p *Protocol) buildGetTickerRequest(params core.Params) (*core.Request, error) {
	pair, err := getRequiredStringParam(params, "pair")
	if err != nil {
		return nil, err
	}

	req := core.NewRequest(http.MethodGet, "ticker")
	req.SetQuery("pair", pair)
	forwardExtraParams(req, params)
	return req, nil
}

func (p *Protocol) buildGetOHLCVRequest(params core.Params) (*core.Request, error) {
	pair, err := getRequiredStringParam(params, "pair")
	if err != nil {
		return nil, err
	}

	req := core.NewRequest(http.MethodGet, "ohlcv")
	req.SetQuery("pair", pair)
	req.SetQuery("interval", getStringParamWithDefault(params, "interval", "1h"))

	if start, ok := params["startDate"].(string); ok && start != "" {
		req.SetQuery("startDate", start)
	}
	if end, ok := params["endDate"].(string); ok && end != "" {
		req.SetQuery("endDate", end)
	}

	forwardExtraParams(req, params)
	return req, nil
}

func (p *Protocol) buildGetMyTradesRequest(params core.Params) (*core.Request, error) {
	pairs, err := getRequiredStringParam(params, "pairs")
	if err != nil {
		return nil, err
	}

	req := core.NewRequest(http.MethodGet, "trades")
	req.SetQuery("pairs", pairs)
	req.SetRequireAuth(true)

	if since, ok := params["since"].(string); ok && since != "" {
		req.SetQuery("since", since)
	}
	if limit, ok := params["limit"].(string); ok && limit != "" {
		req.SetQuery("limit", limit)
	}

	forwardExtraParams(req, params)
	return req, nil
}

func (p *Protocol) buildPlaceOrderRequest(params core.Params) (*core.Request, error) {
	pair, err := getRequiredStringParam(params, "pair")
	if err != nil {
		return nil, err
	}
	side, err := getRequiredStringParam(params, "side")
	if err != nil {
		return nil, err
	}
	amount, err := getRequiredStringParam(params, "amount")
	if err != nil {
		return nil, err
	}

	// Order parameters ride the query string; the signature covers the full
	// path+query, so the body stays empty.
	req := core.NewRequest(http.MethodPost, "order")
	req.SetQuery("pair", pair)
	req.SetQuery("side", side)
	req.SetQuery("amount", amount)
	req.SetRequireAuth(true)

	if price, ok := params["price"].(string); ok && price != "" {
		req.SetQuery("price", price)
	}

	forwardExtraParams(req, params)
	return req, nil
}

// forwardExtraParams copies caller-supplied parameters the builder did not
// already place into the query, so venue-specific extras reach the request
// verbatim. Empty strings are dropped the same way the builders drop them.
func forwardExtraParams(req *core.Request, params core.Params) {
	for k, v := range params {
		if _, ok := req.Query[k]; ok {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		req.SetQuery(k, v)
	}
}

// implodeParams interpolates {name} placeholders in the path from params and
// returns the leftover parameters for the query string.
func implodeParams(path string, params core.Params) (string, core.Params) {
	leftover := make(core.Params, len(params))
	for k, v := range params {
		placeholder := "{" + k + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, fmt.Sprint(v))
			continue
		}
		leftover[k] = v
	}
	return path, leftover
}

// encodeParams URL-encodes query parameters in deterministic (sorted key)
// order so the emitted URL always matches the signed string.
func encodeParams(params core.Params) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, fmt.Sprint(v))
	}
	return values.Encode()
}

func signHMAC(message, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func getRequiredStringParam(params core.Params, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}

	if str == "" {
		return "", fmt.Errorf("parameter %s cannot be empty", key)
	}

	return str, nil
}

func getStringParamWithDefault(params core.Params, key, def string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok && str != "" {
			return str
		}
	}
	return def
}
