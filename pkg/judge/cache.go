package judge

import (
	"sync"

	"github.com/xentlabs/xent/pkg/xent"
)

// scoreCache memoizes Xent results for identical (text, context) pairs
// within a single judge model's lifetime, the same sha256-key idiom the
// teacher's detector-side judge cache uses for prompt/output/goal tuples.
type scoreCache struct {
	mu      sync.RWMutex
	entries map[string]xent.TokenXent
}

func newScoreCache() *scoreCache {
	return &scoreCache{entries: make(map[string]xent.TokenXent)}
}

func (c *scoreCache) get(text, context_ string) (xent.TokenXent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[cacheKey(text, context_)]
	return v, ok
}

func (c *scoreCache) set(text, context_ string, v xent.TokenXent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(text, context_)] = v
}
