package service

import (
	"sync"
	"time"

	"github.com/monument-wall/wall-service/internal/domain"
)

// lookupEntry caches a membership lookup result, including misses, so a
// page that re-checks the connected wallet does not hammer the chain.
type lookupEntry struct {
	participant *domain.Participant
	joined      bool
	expiresAt   time.Time
}

type lookupCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]lookupEntry
	now func() time.Time
}

func newLookupCache(ttl time.Duration) *lookupCache {
	return &lookupCache{
		ttl: ttl,
		m:   make(map[string]lookupEntry),
		now: time.Now,
	}
}

func (c *lookupCache) get(address string) (lookupEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[address]
	if !ok || c.now().After(e.expiresAt) {
		delete(c.m, address)
		return lookupEntry{}, false
	}
	return e, true
}

func (c *lookupCache) put(address string, p *domain.Participant, joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[address] = lookupEntry{
		participant: p,
		joined:      joined,
		expiresAt:   c.now().Add(c.ttl),
	}
}

func (c *lookupCache) invalidate(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, address)
}
