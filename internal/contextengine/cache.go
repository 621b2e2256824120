package contextengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCacheTTL bounds how long a built context stays valid.
	DefaultCacheTTL = 300 * time.Second
	// DefaultCacheSize bounds the number of cached contexts; the least
	// recently used entry is evicted beyond this.
	DefaultCacheSize = 100

	// cacheBucket quantizes time into the cache key so a context is
	// reused at most within one 15-minute window.
	cacheBucket = 15 * time.Minute
	// cacheKeyMessagePrefix is how much of the message participates in
	// the key: enough to separate topics, short enough to still hit.
	cacheKeyMessagePrefix = 50
)

type cacheEntry struct {
	context  EnhancedContext
	sources  []string
	storedAt time.Time
}

// contextCache is an LRU of built contexts with TTL expiry on read. The
// clock is injected so tests can control expiry.
type contextCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

func newContextCache(size int, ttl time.Duration, now func() time.Time) *contextCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		// lru.New only fails for size <= 0, which is guarded above.
		panic(err)
	}
	return &contextCache{entries: entries, ttl: ttl, now: now}
}

func (c *contextCache) get(key string) (cacheEntry, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return cacheEntry{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.entries.Remove(key)
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *contextCache) put(key string, context EnhancedContext, sources []string) {
	c.entries.Add(key, cacheEntry{
		context:  context,
		sources:  sources,
		storedAt: c.now(),
	})
}

func (c *contextCache) len() int {
	return c.entries.Len()
}

// cacheKey derives the lookup key from the task, the session, a coarse
// time bucket and the head of the message.
func cacheKey(base BaseContext, message string, now time.Time) string {
	taskID := ""
	if base.CurrentTask != nil {
		taskID = base.CurrentTask.ID
	}
	sessionID := ""
	if base.ActiveSession != nil {
		sessionID = base.ActiveSession.ID
	}
	bucket := now.Unix() / int64(cacheBucket.Seconds())

	head := []rune(message)
	if len(head) > cacheKeyMessagePrefix {
		head = head[:cacheKeyMessagePrefix]
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s", taskID, sessionID, bucket, string(head)))
	return hex.EncodeToString(sum[:])
}
