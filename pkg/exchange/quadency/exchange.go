package quadency

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"quadx/internal/circuitbreaker"
	httpclient "quadx/internal/http"
	"quadx/internal/ratelimit"
	"quadx/pkg/core"
	"quadx/pkg/exchange"
)

// ordersBucket is the rate-limit bucket order placement runs on.
const ordersBucket = "orders"

// QuadencyExchange is the Quadency implementation of the Exchange interface.
// It composes the protocol, normalizer, HTTP transport, rate limiter, and
// circuit breaker into the unified client surface.
type QuadencyExchange struct {
	config         *core.Config
	httpClient     *httpclient.Client
	rateLimiter    *ratelimit.RateLimiter
	circuitBreaker *circuitbreaker.Breaker
	logger         zerolog.Logger
	protocol       *Protocol
	normalizer     *Normalizer

	marketsMu  sync.RWMutex
	markets    map[string]core.Market
	marketList []core.Market
}

// Option customizes a QuadencyExchange at construction time.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	nonce  core.NonceSource
}

// WithLogger sets the logger for the exchange client. The default discards
// all output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNonce injects the nonce source used for request timestamps, so tests
// can sign deterministically.
func WithNonce(nonce core.NonceSource) Option {
	return func(o *options) {
		o.nonce = nonce
	}
}

// New creates a Quadency exchange client from the given configuration.
func New(config *core.Config, opts ...Option) (*QuadencyExchange, error) {
	if config == nil {
		config = core.DefaultConfig("quadency")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{
		logger: zerolog.Nop(),
		nonce:  core.NewNonce(),
	}
	for _, opt := range opts {
		opt(o)
	}

	client, err := httpclient.NewClient(&httpclient.Config{
		Timeout:      config.Timeout,
		MaxRetries:   config.MaxRetries,
		RetryWaitMin: config.RetryWaitMin,
		RetryWaitMax: config.RetryWaitMax,
		Logger:       o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	protocol := NewProtocolWithNonce(o.nonce)

	limiter := ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)
	if limits := protocol.RateLimits(); limits.OrdersPerSecond > 0 {
		limiter.ConfigureBucket(ordersBucket, limits.OrdersPerSecond, time.Second, limits.Burst)
	}

	var breaker *circuitbreaker.Breaker
	if config.CircuitBreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}

	return &QuadencyExchange{
		config:         config,
		httpClient:     client,
		rateLimiter:    limiter,
		circuitBreaker: breaker,
		logger:         o.logger.With().Str("exchange", "quadency").Logger(),
		protocol:       protocol,
		normalizer:     NewNormalizer(o.nonce),
	}, nil
}

// Register creates a Quadency client and registers it in the container
// under its exchange name.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	ex, err := New(config, opts...)
	if err != nil {
		return err
	}
	container.Register(ex.Name(), ex)
	return nil
}

// Name returns the exchange identifier.
func (e *QuadencyExchange) Name() string {
	return e.protocol.Name()
}

// Version returns the exchange API version.
func (e *QuadencyExchange) Version() string {
	return e.protocol.Version()
}

// Close releases the underlying HTTP resources.
func (e *QuadencyExchange) Close() error {
	return e.httpClient.Close()
}

// LoadMarkets returns the cached market list, fetching it on first use.
func (e *QuadencyExchange) LoadMarkets(ctx context.Context) ([]core.Market, error) {
	e.marketsMu.RLock()
	cached := e.marketList
	e.marketsMu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return e.GetMarkets(ctx)
}

// GetMarkets fetches the tradable markets and refreshes the cache.
func (e *QuadencyExchange) GetMarkets(ctx context.Context) ([]core.Market, error) {
	result, err := e.public(ctx, core.OpGetMarkets, nil)
	if err != nil {
		return nil, err
	}
	markets := result.([]core.Market)

	bySymbol := make(map[string]core.Market, len(markets))
	for _, m := range markets {
		bySymbol[m.Symbol] = m
	}

	e.marketsMu.Lock()
	e.markets = bySymbol
	e.marketList = markets
	e.marketsMu.Unlock()

	e.logger.Debug().Int("count", len(markets)).Msg("markets loaded")
	return markets, nil
}

// Market resolves a unified symbol against the cached market list.
func (e *QuadencyExchange) Market(symbol string) (*core.Market, error) {
	e.marketsMu.RLock()
	defer e.marketsMu.RUnlock()
	if e.markets == nil {
		return nil, core.ErrMarketsNotLoaded
	}
	m, ok := e.markets[symbol]
	if !ok {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			fmt.Sprintf("unknown symbol: %s", symbol)).WithCode(core.ErrCodeInvalidSymbol)
	}
	return &m, nil
}

// GetTicker fetches market statistics for a single pair.
func (e *QuadencyExchange) GetTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	result, err := e.public(ctx, core.OpGetTicker, core.Params{"pair": symbol})
	if err != nil {
		return nil, err
	}
	ticker := result.(*core.Ticker)
	ticker.Symbol = symbol
	return ticker, nil
}

// GetOHLCV fetches candles for a pair. The window defaults to the most
// recent 1000 one-hour candles; WithTimeframe, WithLimit, and WithSince
// adjust it.
func (e *QuadencyExchange) GetOHLCV(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.OHLCV, error) {
	o := exchange.ApplyOptions(opts...)
	timeframe := o.Timeframe
	if timeframe == "" {
		timeframe = "1h"
	}
	limit := int64(o.Limit)
	if limit <= 0 {
		limit = 1000
	}

	duration, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	if _, err := e.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := e.Market(symbol)
	if err != nil {
		return nil, err
	}

	since := o.Since
	if since == 0 {
		since = e.protocol.nonce.Next() - limit*duration*1000
	}
	// The venue wants an explicit window; pad the end past limit*duration
	// so partial candles are not cut off.
	endDate := since + limit*duration*1500

	params := core.Params{
		"pair":      market.Symbol,
		"interval":  timeframe,
		"startDate": strconv.FormatInt(since, 10),
		"endDate":   strconv.FormatInt(endDate, 10),
	}
	maps.Copy(params, o.Params)

	result, err := e.public(ctx, core.OpGetOHLCV, params)
	if err != nil {
		return nil, err
	}
	return result.([]core.OHLCV), nil
}

// GetMyTrades fetches the account's trade history for a pair. The symbol is
// mandatory; the venue cannot list trades across all pairs.
func (e *QuadencyExchange) GetMyTrades(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Trade, error) {
	if symbol == "" {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeArgumentsRequired, 0,
			e.Name()+" GetMyTrades requires a symbol argument").WithCode(core.ErrCodeArgumentsRequired)
	}

	o := exchange.ApplyOptions(opts...)

	if _, err := e.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := e.Market(symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{"pairs": market.Symbol}
	if o.Since > 0 {
		params["since"] = strconv.FormatInt(o.Since, 10)
	}
	if o.Limit > 0 {
		params["limit"] = strconv.Itoa(o.Limit)
	}
	maps.Copy(params, o.Params)

	resp, err := e.signed(ctx, core.OpGetMyTrades, params, "")
	if err != nil {
		return nil, err
	}

	var raws []map[string]any
	if err := jsonAPI.Unmarshal(resp.Bytes(), &raws); err != nil {
		return nil, fmt.Errorf("unmarshal trades: %w", err)
	}
	return e.normalizer.ParseTrades(raws, market), nil
}

// GetBalances fetches the account balances for all assets.
func (e *QuadencyExchange) GetBalances(ctx context.Context) (*core.Balances, error) {
	resp, err := e.signed(ctx, core.OpGetBalances, nil, "")
	if err != nil {
		return nil, err
	}

	var raws []map[string]any
	if err := jsonAPI.Unmarshal(resp.Bytes(), &raws); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	return e.normalizer.ParseBalances(raws), nil
}

// PlaceOrder submits an order. A nil price places a market order; order
// placement runs on its own rate-limit bucket.
func (e *QuadencyExchange) PlaceOrder(ctx context.Context, req *exchange.OrderRequest) (*core.Order, error) {
	if req == nil || req.Symbol == "" {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeArgumentsRequired, 0,
			e.Name()+" PlaceOrder requires a symbol").WithCode(core.ErrCodeArgumentsRequired)
	}
	if req.Amount.IsZero() {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeArgumentsRequired, 0,
			e.Name()+" PlaceOrder requires a non-zero amount").WithCode(core.ErrCodeArgumentsRequired)
	}

	if _, err := e.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := e.Market(req.Symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{
		"pair":   market.Symbol,
		"side":   req.Side.String(),
		"amount": req.Amount.String(),
	}
	if req.Price != nil {
		params["price"] = req.Price.String()
	}

	resp, err := e.signed(ctx, core.OpPlaceOrder, params, ordersBucket)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := jsonAPI.Unmarshal(resp.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}

	order := e.normalizer.ParseOrder(raw, market)
	e.logger.Info().
		Str("symbol", order.Symbol).
		Str("side", order.Side.String()).
		Str("status", order.Status.String()).
		Str("id", order.ID).
		Msg("order placed")
	return order, nil
}

// public runs an unauthenticated operation end to end and returns the
// normalized result.
func (e *QuadencyExchange) public(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	req, err := e.protocol.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if err := e.protocol.Sign(req, core.Credentials{}, e.config.Sandbox); err != nil {
		return nil, err
	}

	resp, err := e.execute(ctx, req, "")
	if err != nil {
		return nil, err
	}
	return e.protocol.ParseResponse(op, resp.StatusCode(), resp.Bytes())
}

// signed runs an authenticated operation through the transport and checks
// the response for venue errors. Normalization is left to the caller, which
// holds the market context.
func (e *QuadencyExchange) signed(ctx context.Context, op core.Operation, params core.Params, bucket string) (*resty.Response, error) {
	if e.config.Credentials == nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeAuthentication, 0,
			core.ErrNoCredentials.Error()).
			WithCode(core.ErrCodeNoCredentials).
			WithCause(core.ErrNoCredentials)
	}

	req, err := e.protocol.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if err := e.protocol.Sign(req, *e.config.Credentials, e.config.Sandbox); err != nil {
		return nil, err
	}

	resp, err := e.execute(ctx, req, bucket)
	if err != nil {
		return nil, err
	}
	if err := e.protocol.HandleErrors(resp.StatusCode(), resp.Bytes()); err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeServerError, resp.StatusCode(),
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.String()))
	}
	return resp, nil
}

func (e *QuadencyExchange) execute(ctx context.Context, req *core.Request, bucket string) (*resty.Response, error) {
	if bucket != "" {
		if err := e.rateLimiter.WaitBucket(ctx, bucket); err != nil {
			return nil, err
		}
	} else {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if e.circuitBreaker != nil && !e.circuitBreaker.Allow() {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeNetwork, 0,
			"circuit breaker open").WithCode(core.ErrCodeCircuitBreaker)
	}

	var resp *resty.Response
	var err error
	switch req.Method {
	case "GET":
		resp, err = e.httpClient.Get(ctx, req.URL, httpclient.WithHeaders(req.Headers))
	case "POST":
		resp, err = e.httpClient.Post(ctx, req.URL, req.Body, httpclient.WithHeaders(req.Headers))
	default:
		return nil, fmt.Errorf("unsupported method: %s", req.Method)
	}

	if e.circuitBreaker != nil {
		e.circuitBreaker.Record(err == nil && resp.StatusCode() < 500)
	}
	if err != nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeNetwork, 0,
			err.Error()).WithCode(core.ErrCodeNetwork)
	}
	return resp, nil
}
