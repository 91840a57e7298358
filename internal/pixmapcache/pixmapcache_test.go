package pixmapcache

import (
	"image"
	"testing"

	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

func fakeImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestAddReplaceReflectsOnlyLatest(t *testing.T) {
	c := New(DefaultMaxBytes)
	fp := NewFingerprint(1, tilecoord.Coord{X: 1, Y: 2, Zoom: 3}, 255, 1, 1, "")

	c.Add(fp, fakeImage(4, 4), "", 400, Extra{})
	c.Add(fp, fakeImage(8, 8), "", 1600, Extra{})

	entry, ok := c.Get(fp)
	if !ok {
		t.Fatal("expected entry present")
	}
	wantSize := int64(1600 + FixedOverheadBytes)
	if entry.SizeBytes != wantSize {
		t.Errorf("SizeBytes = %d, want %d", entry.SizeBytes, wantSize)
	}
	if c.Size() != wantSize {
		t.Errorf("cache Size() = %d, want %d (only latest entry's bytes)", c.Size(), wantSize)
	}
}

func TestEvictionKeepsUnderLimit(t *testing.T) {
	entrySize := int64(1000)
	c := New(entrySize*3 + FixedOverheadBytes*3)

	for i := 0; i < 10; i++ {
		fp := NewFingerprint(1, tilecoord.Coord{X: int32(i), Zoom: 3}, 255, 1, 1, "")
		c.Add(fp, fakeImage(1, 1), "", entrySize, Extra{})
		if c.Size() > c.maxBytes {
			t.Fatalf("after add %d: size %d exceeds limit %d", i, c.Size(), c.maxBytes)
		}
	}
}

func TestEvictionIsFIFONotRecency(t *testing.T) {
	entrySize := int64(1000)
	c := New(entrySize*2 + FixedOverheadBytes*2)

	fp0 := NewFingerprint(1, tilecoord.Coord{X: 0, Zoom: 3}, 255, 1, 1, "")
	fp1 := NewFingerprint(1, tilecoord.Coord{X: 1, Zoom: 3}, 255, 1, 1, "")
	fp2 := NewFingerprint(1, tilecoord.Coord{X: 2, Zoom: 3}, 255, 1, 1, "")

	c.Add(fp0, fakeImage(1, 1), "", entrySize, Extra{})
	c.Add(fp1, fakeImage(1, 1), "", entrySize, Extra{})

	// Accessing fp0 must NOT protect it from eviction: this cache is FIFO,
	// not access-order LRU.
	if _, ok := c.Get(fp0); !ok {
		t.Fatal("expected fp0 present before third add")
	}

	c.Add(fp2, fakeImage(1, 1), "", entrySize, Extra{})

	if _, ok := c.Get(fp0); ok {
		t.Error("fp0 should have been evicted as the oldest insertion despite the intervening Get")
	}
	if _, ok := c.Get(fp1); !ok {
		t.Error("fp1 should still be present")
	}
	if _, ok := c.Get(fp2); !ok {
		t.Error("fp2 should be present")
	}
}

func TestFlushMatchingRemovesAllVariants(t *testing.T) {
	c := New(DefaultMaxBytes)
	tile := tilecoord.Coord{X: 5, Y: 6, Zoom: 7}
	prefix := VariantPrefix(1, tile, "")

	fpFull := NewFingerprint(1, tile, 255, 1, 1, "")
	fpHalf := NewFingerprint(1, tile, 128, 0.5, 0.5, "")
	other := NewFingerprint(1, tilecoord.Coord{X: 9, Y: 9, Zoom: 7}, 255, 1, 1, "")

	c.Add(fpFull, fakeImage(1, 1), "", 10, Extra{})
	c.Add(fpHalf, fakeImage(1, 1), "", 10, Extra{})
	c.Add(other, fakeImage(1, 1), "", 10, Extra{})

	c.FlushMatching(prefix)

	if _, ok := c.Get(fpFull); ok {
		t.Error("fpFull should have been flushed")
	}
	if _, ok := c.Get(fpHalf); ok {
		t.Error("fpHalf should have been flushed")
	}
	if _, ok := c.Get(other); !ok {
		t.Error("other tile's entry should survive flush_matching for a different tile")
	}
}

func TestFlushRemovesEverything(t *testing.T) {
	c := New(DefaultMaxBytes)
	fp := NewFingerprint(1, tilecoord.Coord{X: 1, Zoom: 3}, 255, 1, 1, "")
	c.Add(fp, fakeImage(1, 1), "", 10, Extra{})
	c.Flush()
	if c.Count() != 0 || c.Size() != 0 {
		t.Errorf("after Flush: count=%d size=%d, want 0/0", c.Count(), c.Size())
	}
}
