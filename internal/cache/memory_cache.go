package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	snapshot  StaffSnapshot
	expiresAt time.Time
}

// MemoryStaffCache is the in-process StaffCache used with the memory backend.
type MemoryStaffCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStaffCache returns an empty cache; ttl <= 0 disables expiry.
func NewMemoryStaffCache(ttl time.Duration) *MemoryStaffCache {
	return &MemoryStaffCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryStaffCache) Get(_ context.Context, staffCode string) (*StaffSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[staffCode]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, staffCode)
		c.mu.Unlock()
		return nil, nil
	}
	snap := entry.snapshot
	return &snap, nil
}

func (c *MemoryStaffCache) Set(_ context.Context, snapshot *StaffSnapshot) error {
	if snapshot == nil {
		return nil
	}
	entry := memoryEntry{snapshot: *snapshot}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[snapshot.StaffCode] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryStaffCache) Invalidate(_ context.Context, staffCode string) error {
	c.mu.Lock()
	delete(c.entries, staffCode)
	c.mu.Unlock()
	return nil
}
