package sequence

import (
	"fmt"

	"github.com/danmuck/seqforge/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	seed          string
	discriminator string
}

// CachedExpander memoises expansions per (seed, discriminator).
// Expansion is prefix-stable, so one cached sequence answers every shorter request.
type CachedExpander struct {
	inner *Expander
	cache *lru.Cache[cacheKey, Sequence]
}

// NewCachedExpander wraps inner with an LRU holding up to size entries.
func NewCachedExpander(inner *Expander, size int) (*CachedExpander, error) {
	if inner == nil {
		inner = DefaultExpander()
	}
	cache, err := lru.New[cacheKey, Sequence](size)
	if err != nil {
		return nil, fmt.Errorf("sequence: cache size %d: %w", size, err)
	}
	return &CachedExpander{inner: inner, cache: cache}, nil
}

// Expand returns the same sequence as the wrapped Expander.
func (c *CachedExpander) Expand(seed, discriminator string, length int) (Sequence, error) {
	if length <= 0 {
		return Sequence{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	key := cacheKey{seed: seed, discriminator: discriminator}
	if seq, ok := c.cache.Get(key); ok && seq.Len() >= length {
		observability.RecordExpansion(string(c.inner.hash), "hit")
		return seq.Prefix(length), nil
	}
	seq, err := c.inner.Expand(seed, discriminator, length)
	if err != nil {
		return Sequence{}, err
	}
	c.cache.Add(key, seq)
	observability.RecordExpansion(string(c.inner.hash), "miss")
	return seq, nil
}

// Len reports the number of cached (seed, discriminator) pairs.
func (c *CachedExpander) Len() int {
	return c.cache.Len()
}
