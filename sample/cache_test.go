package sample_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/gridseq/gridseq/sample"
)

func key(name string) sample.Key {
	return sample.Key{Instrument: name, Note: 60, VelBucket: 7}
}

// makeBuffer returns a buffer of the given size in bytes.
func makeBuffer(size int) *sample.Buffer {
	return &sample.Buffer{Data: make([]float32, size/4), SampleRate: 44100, BaseNote: 60}
}

func TestCacheGetSet(t *testing.T) {
	c := sample.NewCache(100000, 150000)
	if _, ok := c.Get(key("a")); ok {
		t.Fatalf("empty cache should miss")
	}
	buf := makeBuffer(24000)
	if err := c.Set(key("a"), buf); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(key("a"))
	if !ok || got != buf {
		t.Fatalf("Get should return the stored buffer")
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 || stats.CurrentSize != 24000 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	// room for four 24000-byte buffers, the fifth insert evicts the least
	// recently used
	c := sample.NewCache(96000, 96000)
	for _, name := range []string{"a", "b", "c", "d"} {
		if err := c.Set(key(name), makeBuffer(24000)); err != nil {
			t.Fatalf("Set %s: %v", name, err)
		}
	}
	// touch a, making b the least recently used
	if _, ok := c.Get(key("a")); !ok {
		t.Fatalf("a should be cached")
	}
	if err := c.Set(key("e"), makeBuffer(24000)); err != nil {
		t.Fatalf("Set e: %v", err)
	}
	if c.Has(key("b")) {
		t.Errorf("b should have been evicted as least recently used")
	}
	for _, name := range []string{"a", "c", "d", "e"} {
		if !c.Has(key(name)) {
			t.Errorf("%s should still be cached", name)
		}
	}
	if stats := c.Stats(); stats.Evictions != 1 || stats.CurrentSize != 96000 {
		t.Errorf("unexpected stats after eviction: %+v", stats)
	}
}

func TestAcquireProtectsFromEviction(t *testing.T) {
	c := sample.NewCache(48000, 200000)
	c.Set(key("a"), makeBuffer(24000))
	c.Set(key("b"), makeBuffer(24000))
	if !c.Acquire(key("a")) {
		t.Fatalf("Acquire on a cached key should succeed")
	}
	// a is LRU but referenced; admission must skip it and evict b instead
	c.Set(key("c"), makeBuffer(24000))
	if !c.Has(key("a")) {
		t.Errorf("referenced entry must not be evicted at the soft limit")
	}
	if c.Has(key("b")) {
		t.Errorf("unreferenced entry should have been evicted instead")
	}
	if stats := c.Stats(); stats.Referenced != 1 {
		t.Errorf("expected 1 referenced entry, got %+v", stats)
	}
	// once released, the overage is evicted
	c.Release(key("a"))
	if c.Has(key("a")) && c.Stats().CurrentSize > 48000 {
		t.Errorf("release should allow the cache back under its soft limit")
	}
}

func TestHardLimitForceEvicts(t *testing.T) {
	c := sample.NewCache(24000, 48000)
	c.Set(key("a"), makeBuffer(24000))
	c.Acquire(key("a"))
	c.Set(key("b"), makeBuffer(24000))
	c.Acquire(key("b"))
	// both entries referenced, but the hard limit still wins
	c.Set(key("c"), makeBuffer(24000))
	stats := c.Stats()
	if stats.CurrentSize > 48000 {
		t.Errorf("cache must never exceed its hard limit, got %+v", stats)
	}
	if !c.Has(key("c")) {
		t.Errorf("the admitted buffer should survive; referenced older entries are force-evicted instead")
	}
	if c.Has(key("a")) {
		t.Errorf("the oldest referenced entry should have been force-evicted")
	}
	// a released reference on a force-evicted key is a no-op
	c.Release(key("a"))
	c.Release(key("a"))
}

func TestOversizeRejected(t *testing.T) {
	c := sample.NewCache(24000, 48000)
	err := c.Set(key("big"), makeBuffer(48004))
	if !errors.Is(err, sample.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if c.Has(key("big")) {
		t.Errorf("rejected buffer must not be cached")
	}
}

func TestMemoryPressure(t *testing.T) {
	c := sample.NewCache(200000, 300000)
	for _, name := range []string{"a", "b", "c", "d"} {
		c.Set(key(name), makeBuffer(24000))
	}
	c.Acquire(key("a"))

	// warning with the cache under its soft limit changes nothing
	c.HandleMemoryPressure(sample.PressureWarning)
	if c.Stats().Entries != 4 {
		t.Errorf("warning below the soft limit should not evict")
	}

	// critical pressure halves the cache but spares referenced entries
	c.HandleMemoryPressure(sample.PressureCritical)
	stats := c.Stats()
	if stats.CurrentSize > 48000 {
		t.Errorf("critical pressure should shrink to half, got %+v", stats)
	}
	if !c.Has(key("a")) {
		t.Errorf("referenced entry must survive critical pressure")
	}
}

func TestSetMaxSizeEvictsImmediately(t *testing.T) {
	c := sample.NewCache(96000, 96000)
	for _, name := range []string{"a", "b", "c", "d"} {
		c.Set(key(name), makeBuffer(24000))
	}
	c.SetMaxSize(48000)
	stats := c.Stats()
	if stats.CurrentSize > 48000 || stats.Entries != 2 {
		t.Errorf("SetMaxSize should evict down to the new limit, got %+v", stats)
	}
	if !c.Has(key("c")) || !c.Has(key("d")) {
		t.Errorf("the most recently used entries should survive")
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := sample.NewCache(96000, 96000)
	c.Set(key("a"), makeBuffer(24000))
	c.Set(key("b"), makeBuffer(24000))
	c.Acquire(key("a"))
	c.Delete(key("a")) // explicit delete ignores references
	if c.Has(key("a")) {
		t.Errorf("deleted entry should be gone")
	}
	c.Clear()
	if stats := c.Stats(); stats.Entries != 0 || stats.CurrentSize != 0 {
		t.Errorf("cleared cache should be empty, got %+v", stats)
	}
}

func TestReplaceAccountsSize(t *testing.T) {
	c := sample.NewCache(96000, 96000)
	c.Set(key("a"), makeBuffer(24000))
	c.Set(key("a"), makeBuffer(48000))
	if stats := c.Stats(); stats.Entries != 1 || stats.CurrentSize != 48000 {
		t.Errorf("replacing a buffer should account the new size, got %+v", stats)
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := sample.NewCache(96000, 144000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			names := []string{"a", "b", "c", "d", "e", "f"}
			for j := 0; j < 200; j++ {
				name := names[(n+j)%len(names)]
				k := key(name)
				if _, ok := c.Get(k); !ok {
					c.Set(k, makeBuffer(24000))
				}
				if c.Acquire(k) {
					c.Release(k)
				}
			}
		}(i)
	}
	// resizing moves both limits while the other goroutines admit buffers
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			c.SetMaxSize(96000 + (j%5)*24000)
		}
	}()
	wg.Wait()
	c.SetMaxSize(96000)
	if stats := c.Stats(); stats.CurrentSize > 96000 {
		t.Errorf("cache exceeded its limit after concurrent resizing: %+v", stats)
	}
}
