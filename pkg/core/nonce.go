package core

import (
	"sync"
	"time"
)

// NonceSource supplies monotonically non-decreasing epoch-millisecond values.
// It serves both as the request-uniqueness nonce for signing and as the
// timestamp substitute when the venue omits one. Implementations must stay
// monotonic across concurrent callers.
type NonceSource interface {
	// Next returns the next nonce value in epoch milliseconds.
	Next() int64
}

// NonceFunc adapts a plain function to a NonceSource. Useful in tests for
// supplying deterministic values.
type NonceFunc func() int64

// Next implements NonceSource.
func (f NonceFunc) Next() int64 { return f() }

type millisecondNonce struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewNonce returns a wall-clock backed NonceSource. When calls land inside
// the same millisecond the value is bumped by one so it never repeats.
func NewNonce() NonceSource {
	return &millisecondNonce{now: time.Now}
}

// NewNonceWithClock returns a NonceSource driven by the supplied clock
// function instead of the system clock.
func NewNonceWithClock(now func() time.Time) NonceSource {
	return &millisecondNonce{now: now}
}

func (n *millisecondNonce) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		n.last++
	} else {
		n.last = ms
	}
	return n.last
}
