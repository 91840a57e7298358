package diskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

func TestPathForVikingLayout(t *testing.T) {
	tile := tilecoord.Coord{X: 10, Y: 20, Zoom: 5}
	got := PathFor("/cache", Viking, 7, tile, "png", "", true)
	want := filepath.Join("/cache", "t7s5z12", "10", "20")
	if got != want {
		t.Errorf("PathFor(Viking) = %q, want %q", got, want)
	}
}

func TestPathForOSMLayoutIncludesNameWhenDefault(t *testing.T) {
	tile := tilecoord.Coord{X: 1, Y: 2, Zoom: 0}
	got := PathFor("/cache", OSM, 7, tile, "png", "mysource", true)
	want := filepath.Join("/cache", "mysource", "17", "1", "2.png")
	if got != want {
		t.Errorf("PathFor(OSM, default dir) = %q, want %q", got, want)
	}
}

func TestPathForOSMLayoutOmitsNameWhenNotDefault(t *testing.T) {
	tile := tilecoord.Coord{X: 1, Y: 2, Zoom: 0}
	got := PathFor("/cache", OSM, 7, tile, "png", "mysource", false)
	want := filepath.Join("/cache", "17", "1", "2.png")
	if got != want {
		t.Errorf("PathFor(OSM, non-default dir) = %q, want %q", got, want)
	}
}

func TestWriteAtomicThenReadBytesMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "tile.bin")
	want := []byte{1, 2, 3, 4, 5}

	if err := WriteAtomic(path, want); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// No leftover temp files in the target directory.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one file in %s, found %d", filepath.Dir(path), len(entries))
	}
}

func TestStoreExists(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, Viking)
	path := filepath.Join(dir, "present.bin")
	if s.Exists(path) {
		t.Error("expected Exists false before write")
	}
	if err := WriteAtomic(path, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !s.Exists(path) {
		t.Error("expected Exists true after write")
	}
}
