package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/model"
)

// IdentityCache remembers resolved identities keyed by a credential hash.
// Implementations are safe for concurrent use.
type IdentityCache interface {
	Get(ctx context.Context, key string) (model.Identity, bool, error)
	Set(ctx context.Context, key string, identity model.Identity, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Flush drops every cached identity.
	Flush(ctx context.Context) error
}

type memoryEntry struct {
	identity  model.Identity
	expiresAt time.Time
}

// MemoryIdentityCache is the in-process cache used when Redis is not
// configured.
type MemoryIdentityCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryIdentityCache) Get(_ context.Context, key string) (model.Identity, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return model.Identity{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return model.Identity{}, false, nil
	}
	return entry.identity, true, nil
}

func (c *MemoryIdentityCache) Set(_ context.Context, key string, identity model.Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{identity: identity, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryIdentityCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryIdentityCache) Flush(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryIdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
