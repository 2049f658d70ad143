package exchange

import "quadx/pkg/core"

type Option func(*Options)

type Options struct {
	// Limit caps the number of rows returned.
	Limit int
	// Timeframe selects the candle interval (e.g., "1m", "1h").
	Timeframe string
	// Since restricts results to entries at or after this epoch-millisecond time.
	Since int64
	// Params carries extra venue-specific query parameters verbatim.
	Params core.Params
}

func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func WithTimeframe(timeframe string) Option {
	return func(o *Options) {
		o.Timeframe = timeframe
	}
}

func WithSince(since int64) Option {
	return func(o *Options) {
		o.Since = since
	}
}

func WithParams(params core.Params) Option {
	return func(o *Options) {
		o.Params = params
	}
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
