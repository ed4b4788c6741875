package cache

import (
	"sync/atomic"
	"time"
)

// LayeredCache serves inferred names from memory within a run and keeps
// them on disk across runs. Disk hits are promoted into memory.
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
}

// Stats counts lookups by the layer that answered them
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// NewLayeredCache creates a memory layer over a disk layer rooted at diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return val, true
	}
	if val, ok := c.disk.Get(key); ok {
		c.diskHits.Add(1)
		_ = c.memory.Set(key, val, 0)
		return val, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set writes through both layers. The memory layer is always updated; a disk
// failure is returned after the value is already served from memory.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	_ = c.memory.Set(key, value, ttl)
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Prune drops expired entries from the disk layer
func (c *LayeredCache) Prune() (int, error) {
	return c.disk.Prune()
}

// Stats returns the lookup counters since the cache was created
func (c *LayeredCache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}
