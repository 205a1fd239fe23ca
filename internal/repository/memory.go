package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemorySnapshotCache is the in-process SnapshotCache used when Redis is
// unavailable or not configured.
type MemorySnapshotCache struct {
	entries sync.Map
	now     func() time.Time
}

func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{now: time.Now}
}

func (r *MemorySnapshotCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := r.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.entries.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (r *MemorySnapshotCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.entries.Store(key, entry)
	return nil
}

func (r *MemorySnapshotCache) Delete(_ context.Context, key string) error {
	r.entries.Delete(key)
	return nil
}

func (r *MemorySnapshotCache) Ping(context.Context) error {
	return nil
}
