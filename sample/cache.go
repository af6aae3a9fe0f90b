// Package sample holds decoded audio buffers for the sample-playback voices
// behind a reference-counted LRU cache, so repeated triggers of the same
// sound reuse one decode and memory stays bounded while the engine runs.
package sample

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// Key identifies one decoded rendition of a sample. The velocity bucket keeps
// the key space small: velocities are quantized before lookup so nearly-equal
// velocities share a buffer.
type Key struct {
	Instrument string
	Note       int
	VelBucket  int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d", k.Instrument, k.Note, k.VelBucket)
}

// VelBuckets is the number of velocity quantization buckets.
const VelBuckets = 8

// BucketVelocity maps a velocity in [0,1] to its bucket index.
func BucketVelocity(v float64) int {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return VelBuckets - 1
	}
	return int(v * VelBuckets)
}

// Buffer is one decoded sample: mono float32 frames at the rate they were
// recorded at. BaseNote is the pitch the recording represents, so playback
// can resample relative to it.
type Buffer struct {
	Data       []float32
	SampleRate int
	BaseNote   int
}

// SizeBytes is the memory cost the cache accounts this buffer at.
func (b *Buffer) SizeBytes() int {
	return len(b.Data) * 4
}

// ErrTooLarge is returned by Set when a single buffer alone exceeds the
// cache's hard limit; such a buffer can never be admitted.
var ErrTooLarge = errors.New("sample buffer exceeds cache hard limit")

// PressureLevel is an external memory pressure signal fed into the cache by
// whoever watches the process (the player's pressure hook, an OS watcher).
type PressureLevel int

const (
	PressureNone PressureLevel = iota
	PressureWarning
	PressureCritical
)

// Stats is a snapshot of the cache's counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	CurrentSize int
	Entries     int
	Referenced  int
}

type entry struct {
	key  Key
	buf  *Buffer
	refs int
	elem *list.Element
}

// Cache is a bounded LRU of decoded sample buffers. MaxSize is the soft
// limit: admission evicts least-recently-used unreferenced entries down to
// it. HardLimit is the ceiling: when unreferenced evictions cannot get under
// it, referenced entries are evicted too (their holders keep their *Buffer,
// which stays valid; only the cache forgets it). All methods are safe for
// concurrent use.
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	hardLimit int
	size      int
	entries   map[Key]*entry
	lru       *list.List // front = most recently used
	hits      int64
	misses    int64
	evictions int64
}

// NewCache returns a cache with the given soft and hard byte limits. A
// hardLimit below maxSize is raised to maxSize.
func NewCache(maxSize, hardLimit int) *Cache {
	if hardLimit < maxSize {
		hardLimit = maxSize
	}
	return &Cache{
		maxSize:   maxSize,
		hardLimit: hardLimit,
		entries:   make(map[Key]*entry),
		lru:       list.New(),
	}
}

// Get returns the buffer for key, promoting it to most recently used.
func (c *Cache) Get(key Key) (*Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.MoveToFront(e.elem)
	return e.buf, true
}

// Has reports whether key is cached without touching recency or counters.
func (c *Cache) Has(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Set inserts or replaces the buffer for key. A buffer larger than the hard
// limit is rejected with ErrTooLarge. Admission may evict other entries:
// first unreferenced ones in LRU order down to the soft limit, then, if the
// hard limit is still exceeded, referenced ones as well.
func (c *Cache) Set(key Key, buf *Buffer) error {
	size := buf.SizeBytes()
	c.mu.Lock()
	defer c.mu.Unlock()
	if size > c.hardLimit {
		return fmt.Errorf("%w: %d bytes, hard limit %d", ErrTooLarge, size, c.hardLimit)
	}
	e, ok := c.entries[key]
	if ok {
		c.size += size - e.buf.SizeBytes()
		e.buf = buf
		c.lru.MoveToFront(e.elem)
	} else {
		e = &entry{key: key, buf: buf}
		e.elem = c.lru.PushFront(e)
		c.entries[key] = e
		c.size += size
	}
	// the entry being admitted is never its own eviction victim
	c.evictLockedSkip(c.maxSize, false, e)
	if c.size > c.hardLimit {
		c.evictLockedSkip(c.hardLimit, true, e)
	}
	return nil
}

// Delete removes key outright, regardless of references.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Clear drops every entry and zeroes all reference counts.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
	c.lru.Init()
	c.size = 0
}

// Acquire pins key against eviction. Each Acquire must be paired with a
// Release. Acquiring a missing key does nothing and reports false.
func (c *Cache) Acquire(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Release undoes one Acquire. Releasing a missing key, or one already at zero
// references, is a no-op; this makes voice retirement safe to run after the
// cache force-evicted the entry.
func (c *Cache) Release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.refs == 0 {
		return
	}
	e.refs--
	if e.refs == 0 && c.size > c.maxSize {
		c.evictLocked(c.maxSize, false)
	}
}

// SetMaxSize changes the soft limit and immediately evicts down to it. The
// hard limit is raised if it would fall below the new soft limit.
func (c *Cache) SetMaxSize(maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	if c.hardLimit < maxSize {
		c.hardLimit = maxSize
	}
	c.evictLocked(c.maxSize, false)
}

// HandleMemoryPressure reacts to an external pressure signal. A warning
// evicts unreferenced entries until the cache is back under its soft limit.
// Critical pressure shrinks towards half of the current size, still sparing
// referenced entries; buffers in use by sounding voices are never pulled
// away mid-note.
func (c *Cache) HandleMemoryPressure(level PressureLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch level {
	case PressureWarning:
		c.evictLocked(c.maxSize, false)
	case PressureCritical:
		c.evictLocked(c.size/2, false)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	referenced := 0
	for _, e := range c.entries {
		if e.refs > 0 {
			referenced++
		}
	}
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		CurrentSize: c.size,
		Entries:     len(c.entries),
		Referenced:  referenced,
	}
}

// evictLocked removes entries from the LRU end until size <= target. With
// force unset it skips referenced entries; with force set it takes them too.
func (c *Cache) evictLocked(target int, force bool) {
	c.evictLockedSkip(target, force, nil)
}

func (c *Cache) evictLockedSkip(target int, force bool, skip *entry) {
	for el := c.lru.Back(); el != nil && c.size > target; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e != skip && (e.refs == 0 || force) {
			c.removeLocked(e)
		}
		el = prev
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key)
	c.size -= e.buf.SizeBytes()
	c.evictions++
}
