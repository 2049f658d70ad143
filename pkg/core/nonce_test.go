package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNonce_ReturnsClockMilliseconds(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	n := NewNonceWithClock(func() time.Time { return fixed })

	assert.Equal(t, int64(1700000000000), n.Next())
}

func TestNonce_BumpsWithinSameMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	n := NewNonceWithClock(func() time.Time { return fixed })

	first := n.Next()
	second := n.Next()
	third := n.Next()

	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)
}

func TestNonce_FollowsAdvancingClock(t *testing.T) {
	current := time.UnixMilli(1700000000000)
	n := NewNonceWithClock(func() time.Time { return current })

	first := n.Next()
	current = current.Add(5 * time.Millisecond)
	second := n.Next()

	assert.Equal(t, first+5, second)
}

func TestNonce_MonotonicUnderConcurrency(t *testing.T) {
	n := NewNonce()

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	results := make([][]int64, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			vals := make([]int64, perGoroutine)
			for i := range vals {
				vals[i] = n.Next()
			}
			results[idx] = vals
		}(g)
	}
	wg.Wait()

	seen := make(map[int64]bool, goroutines*perGoroutine)
	for _, vals := range results {
		for i, v := range vals {
			assert.False(t, seen[v], "nonce %d repeated", v)
			seen[v] = true
			if i > 0 {
				assert.Greater(t, v, vals[i-1])
			}
		}
	}
}

func TestNonceFunc(t *testing.T) {
	n := NonceFunc(func() int64 { return 42 })
	assert.Equal(t, int64(42), n.Next())
}
