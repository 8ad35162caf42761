package scan

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func key(pattern string) cacheKey {
	return cacheKey{pid: 1, epoch: 0, pattern: pattern, scope: "process"}
}

func TestCacheRoundTrip(t *testing.T) {
	c := newResultCache(4)

	entry := cacheEntry{
		matches:    []Match{{Address: 0x1000, Region: 0x1000}},
		capturedAt: time.Now(),
	}
	c.put(key("AA"), entry)

	got, ok := c.get(key("AA"))
	if !ok {
		t.Fatal("expected cache hit")
	}
	if diff := cmp.Diff(entry.matches, got.matches); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheEpochMiss(t *testing.T) {
	c := newResultCache(4)
	c.put(key("AA"), cacheEntry{})

	bumped := key("AA")
	bumped.epoch = 1
	if _, ok := c.get(bumped); ok {
		t.Fatal("entry under an old epoch must be unreachable after a bump")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newResultCache(3)

	c.put(key("A"), cacheEntry{})
	c.put(key("B"), cacheEntry{})
	c.put(key("C"), cacheEntry{})

	// Touch A so B becomes the least recently used.
	if _, ok := c.get(key("A")); !ok {
		t.Fatal("expected hit for A")
	}

	c.put(key("D"), cacheEntry{})

	if _, ok := c.get(key("B")); ok {
		t.Fatal("B should have been evicted")
	}
	for _, k := range []string{"A", "C", "D"} {
		if _, ok := c.get(key(k)); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
	if c.len() != 3 {
		t.Fatalf("len = %d, want 3", c.len())
	}
}

func TestCachePutUpdatesExisting(t *testing.T) {
	c := newResultCache(2)

	c.put(key("A"), cacheEntry{matches: []Match{{Address: 1}}})
	c.put(key("A"), cacheEntry{matches: []Match{{Address: 2}}})

	got, ok := c.get(key("A"))
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got.matches) != 1 || got.matches[0].Address != 2 {
		t.Fatalf("matches = %v, want the updated entry", got.matches)
	}
	if c.len() != 1 {
		t.Fatalf("len = %d, want 1", c.len())
	}
}
