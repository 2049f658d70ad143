package quadency

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"quadx/pkg/core"
)

// jsonAPI decodes payloads with numbers kept as json.Number so decimal
// precision survives the trip through interface{}.
var jsonAPI = sonic.Config{UseNumber: true}.Froze()

// quoteCurrencies lists the quote assets the markets document groups by,
// in the order they are flattened.
var quoteCurrencies = []string{"USDC", "USDT"}

// feeCurrencyFallback is the fee currency assumed when a trade has no
// market context to take the quote currency from.
const feeCurrencyFallback = "QUAD"

// Normalizer converts raw Quadency API payloads into canonical types.
// All decimal arithmetic goes through a shared context; absent or
// unparseable fields normalize to nil rather than zero.
type Normalizer struct {
	ctx   *apd.Context
	nonce core.NonceSource
}

// NewNormalizer creates a normalizer with the given nonce source, used to
// stamp orders whose payload carries no timestamp.
func NewNormalizer(nonce core.NonceSource) *Normalizer {
	ctx := apd.BaseContext.WithPrecision(25)
	return &Normalizer{ctx: ctx, nonce: nonce}
}

// ParseMarkets flattens the markets document into canonical markets.
// The document nests base-asset metadata under each supported quote
// currency; flattening preserves the upstream document order within each
// quote group, so the result is stable across calls.
func (n *Normalizer) ParseMarkets(body []byte) ([]core.Market, error) {
	root, err := sonic.Get(body, "markets", "quoteAssets")
	if err != nil {
		return nil, fmt.Errorf("markets document has no quoteAssets: %w", err)
	}

	var markets []core.Market
	for _, quote := range quoteCurrencies {
		group := root.Get(quote)
		if !group.Exists() {
			continue
		}
		baseAssets := group.Get("baseAssets")
		if !baseAssets.Exists() {
			continue
		}

		// Len reports 0 on a lazily-parsed node; load it first.
		if err := baseAssets.Load(); err != nil {
			return nil, fmt.Errorf("read %s baseAssets: %w", quote, err)
		}
		size, err := baseAssets.Len()
		if err != nil {
			return nil, fmt.Errorf("read %s baseAssets: %w", quote, err)
		}
		for i := 0; i < size; i++ {
			pair := baseAssets.IndexPair(i)
			if pair == nil {
				continue
			}
			meta, err := pair.Value.MapUseNumber()
			if err != nil {
				return nil, fmt.Errorf("read %s/%s market: %w", quote, pair.Key, err)
			}
			symbol, _ := core.SafeString(meta, "liquidityPair")
			if symbol == "" {
				continue
			}
			markets = append(markets, n.ParseMarket(symbol, meta))
		}
	}
	return markets, nil
}

// ParseMarket builds a canonical market from one base-asset entry. Fees
// arrive as percentages and are converted to fractions; a market is active
// when either side of it is enabled.
func (n *Normalizer) ParseMarket(symbol string, meta map[string]any) core.Market {
	base, quote, _ := strings.Cut(symbol, "/")
	return core.Market{
		ID:     strings.ReplaceAll(symbol, "/", ""),
		Symbol: symbol,
		Base:   base,
		Quote:  quote,
		Taker:  n.feeFraction(meta, "takerFee"),
		Maker:  n.feeFraction(meta, "makerFee"),
		Limits: core.MarketLimits{
			Amount: n.limitRange(meta, "amount"),
			Price:  n.limitRange(meta, "price"),
			Cost:   n.limitRange(meta, "cost"),
		},
		Active:     core.SafeBool(meta, "buyEnabled") || core.SafeBool(meta, "sellEnabled"),
		Percentage: true,
		Info:       meta,
	}
}

// ParseTicker builds a canonical ticker. Fields the payload omits stay nil.
func (n *Normalizer) ParseTicker(raw map[string]any) *core.Ticker {
	symbol, _ := core.SafeString(raw, "pair")
	return &core.Ticker{
		Symbol:    symbol,
		Price:     core.SafeDecimal(raw, "price"),
		Last:      core.SafeDecimal(raw, "last"),
		Close:     core.SafeDecimal(raw, "close"),
		High:      core.SafeDecimal(raw, "high"),
		Low:       core.SafeDecimal(raw, "low"),
		Price24h:  core.SafeDecimal(raw, "price24h"),
		Volume:    core.SafeDecimal(raw, "volume"),
		Volume24h: core.SafeDecimal(raw, "volume24h"),
	}
}

// ParseTrades converts raw trade entries. The market, when known, supplies
// the symbol context for fee defaults.
func (n *Normalizer) ParseTrades(raws []map[string]any, market *core.Market) []core.Trade {
	trades := make([]core.Trade, 0, len(raws))
	for _, raw := range raws {
		trades = append(trades, *n.ParseTrade(raw, market))
	}
	return trades
}

// ParseTrade builds a canonical trade from an execution record. Cost is
// derived as price*amount when both sides are present.
func (n *Normalizer) ParseTrade(raw map[string]any, market *core.Market) *core.Trade {
	trade := &core.Trade{Info: raw}

	if ts, ok := core.SafeInteger(raw, "e_timestamp"); ok {
		trade.Timestamp = ts
		trade.Datetime = core.ISO8601(ts)
	}
	trade.ID, _ = core.SafeString(raw, "e_tradeId")
	trade.OrderID, _ = core.SafeString(raw, "e_orderId")
	trade.Symbol, _ = core.SafeString(raw, "pair")
	if trade.Symbol == "" && market != nil {
		trade.Symbol = market.Symbol
	}

	side, _ := core.SafeString(raw, "side")
	trade.Side = core.ParseOrderSide(side)

	trade.Price = core.SafeDecimal(raw, "price")
	trade.Amount = core.SafeDecimal(raw, "amount")
	trade.Cost = n.mul(trade.Price, trade.Amount)

	quote := feeCurrencyFallback
	if market != nil && market.Quote != "" {
		quote = market.Quote
	}
	trade.Fee = n.ParseTradeFee(raw, quote)

	return trade
}

// ParseTradeFee extracts the fee sub-object, defaulting the currency to the
// market quote when the payload leaves it out.
func (n *Normalizer) ParseTradeFee(raw map[string]any, quote string) core.TradeFee {
	feeRaw, ok := core.SafeMap(raw, "fee")
	if !ok {
		return core.TradeFee{Currency: quote}
	}
	return core.TradeFee{
		Cost:     core.SafeDecimalOr(feeRaw, "cost"),
		Currency: core.SafeStringOr(feeRaw, "currency", quote),
		Rate:     core.SafeDecimalOr(feeRaw, "rate"),
	}
}

// ParseOrder builds a canonical order from a placement or status payload.
//
// The venue reports the executed quantity as purchaseAmount denominated in
// the received asset, so sells convert it back to base units via the price.
// The requested amount comes from orderAmount for sells; buys only learn it
// from the fill, and payloads without orderAmount fall back to the raw
// amount field and then to the fill itself.
func (n *Normalizer) ParseOrder(raw map[string]any, market *core.Market) *core.Order {
	order := &core.Order{Info: raw}

	order.ID, _ = core.SafeString(raw, "orderId")
	order.Symbol, _ = core.SafeString(raw, "pair")
	if order.Symbol == "" && market != nil {
		order.Symbol = market.Symbol
	}

	typeStr, _ := core.SafeString(raw, "type")
	order.Type = core.ParseOrderType(typeStr)
	sideStr, _ := core.SafeString(raw, "side")
	order.Side = core.ParseOrderSide(sideStr)

	statusStr, _ := core.SafeString(raw, "status")
	order.Status = parseOrderStatus(statusStr)

	if ts, ok := core.SafeInteger(raw, "timestamp"); ok {
		order.Timestamp = ts
	} else {
		order.Timestamp = n.nonce.Next() * 1000
	}
	order.Datetime = core.ISO8601(order.Timestamp)

	order.Price = core.SafeDecimal(raw, "price")

	if purchased := core.SafeDecimal(raw, "purchaseAmount"); purchased != nil {
		if order.Side == core.SideSell {
			// purchaseAmount is quote-denominated on sells.
			order.Filled = n.quo(purchased, order.Price)
		} else {
			order.Filled = purchased
		}
	}

	if orderAmount := core.SafeDecimal(raw, "orderAmount"); orderAmount != nil {
		if order.Side == core.SideSell {
			order.Amount = orderAmount
		} else {
			order.Amount = order.Filled
		}
	} else if amount := core.SafeDecimal(raw, "amount"); amount != nil {
		order.Amount = amount
	} else {
		order.Amount = order.Filled
	}

	order.Cost = n.mul(order.Price, order.Filled)
	if order.Filled != nil && !order.Filled.IsZero() {
		order.Average = n.quo(order.Cost, order.Filled)
	}
	order.Remaining = n.remaining(order.Amount, order.Filled)

	return order
}

// ParseBalances builds the canonical balance set from the asset array.
func (n *Normalizer) ParseBalances(raws []map[string]any) *core.Balances {
	balances := &core.Balances{
		Info:   raws,
		Assets: make(map[string]core.Balance, len(raws)),
	}
	for _, raw := range raws {
		asset, _ := core.SafeString(raw, "asset")
		if asset == "" {
			continue
		}
		balances.Assets[asset] = core.Balance{
			Free:  core.SafeDecimal(raw, "free"),
			Used:  core.SafeDecimal(raw, "used"),
			Total: core.SafeDecimal(raw, "total"),
		}
	}
	return balances
}

// ParseOHLCVs converts candle rows of [timestamp, open, high, low, close,
// volume]. Rows too short to carry all six fields are skipped.
func (n *Normalizer) ParseOHLCVs(rows []any) []core.OHLCV {
	candles := make([]core.OHLCV, 0, len(rows))
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) < 6 {
			continue
		}
		candles = append(candles, core.OHLCV{
			Timestamp: elemInteger(row, 0),
			Open:      elemDecimal(row, 1),
			High:      elemDecimal(row, 2),
			Low:       elemDecimal(row, 3),
			Close:     elemDecimal(row, 4),
			Volume:    elemDecimal(row, 5),
		})
	}
	return candles
}

func (n *Normalizer) feeFraction(meta map[string]any, key string) *apd.Decimal {
	pct := core.SafeDecimal(meta, key)
	if pct == nil {
		return apd.New(0, 0)
	}
	frac := new(apd.Decimal)
	if _, err := n.ctx.Quo(frac, pct, apd.New(100, 0)); err != nil {
		return apd.New(0, 0)
	}
	return frac
}

func (n *Normalizer) limitRange(meta map[string]any, key string) core.LimitRange {
	limits, ok := core.SafeMap(meta, "limits")
	if !ok {
		return core.LimitRange{}
	}
	sub, ok := core.SafeMap(limits, key)
	if !ok {
		return core.LimitRange{}
	}
	return core.LimitRange{
		Min: core.SafeDecimal(sub, "min"),
		Max: core.SafeDecimal(sub, "max"),
	}
}

// mul returns a*b, or nil when either operand is absent.
func (n *Normalizer) mul(a, b *apd.Decimal) *apd.Decimal {
	if a == nil || b == nil {
		return nil
	}
	result := new(apd.Decimal)
	if _, err := n.ctx.Mul(result, a, b); err != nil {
		return nil
	}
	return result
}

// quo returns a/b, or nil when either operand is absent or b is zero.
func (n *Normalizer) quo(a, b *apd.Decimal) *apd.Decimal {
	if a == nil || b == nil || b.IsZero() {
		return nil
	}
	result := new(apd.Decimal)
	if _, err := n.ctx.Quo(result, a, b); err != nil {
		return nil
	}
	return result
}

// remaining returns amount-filled clamped at zero, or nil when either side
// is unknown.
func (n *Normalizer) remaining(amount, filled *apd.Decimal) *apd.Decimal {
	if amount == nil || filled == nil {
		return nil
	}
	result := new(apd.Decimal)
	if _, err := n.ctx.Sub(result, amount, filled); err != nil {
		return nil
	}
	if result.Negative {
		return apd.New(0, 0)
	}
	return result
}

// parseOrderStatus maps venue status strings, case-insensitively, onto the
// canonical lifecycle. Unknown statuses read as open.
func parseOrderStatus(s string) core.OrderStatus {
	switch strings.ToLower(s) {
	case "ok":
		return core.StatusClosed
	case "failed":
		return core.StatusRejected
	case "cancelled", "canceled":
		return core.StatusCanceled
	default:
		return core.StatusOpen
	}
}

func elemDecimal(row []any, idx int) *apd.Decimal {
	if idx >= len(row) {
		return nil
	}
	var s string
	switch v := row[idx].(type) {
	case json.Number:
		s = v.String()
	case string:
		s = v
	case float64:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(v); err != nil {
			return nil
		}
		return d
	default:
		return nil
	}
	d, _, err := new(apd.Decimal).SetString(s)
	if err != nil {
		return nil
	}
	return d
}

func elemInteger(row []any, idx int) int64 {
	if idx >= len(row) {
		return 0
	}
	switch v := row[idx].(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0
		}
		return i
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
