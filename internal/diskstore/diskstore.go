// Package diskstore implements the on-disk tile layouts (Viking and OSM)
// and atomic tile writes, grounded in the original's file path conventions
// and the teacher's temp-file-then-rename persistence pattern
// (internal/cache/persistent_cache.go).
package diskstore

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/tiff"

	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Layout selects which on-disk naming scheme a cache directory uses.
type Layout int

const (
	Viking Layout = iota
	OSM
)

// PathFor returns the on-disk path for a tile under the given layout.
//
// Viking: <dir>/t<typeID>s<scale>z<z>/<x>/<y> (extension-less).
// OSM:    <dir>[/<name>]/<osmZoom>/<x>/<y>.<ext>; name is included only
// when dir equals the global default directory.
func PathFor(dir string, layout Layout, typeID int, tile tilecoord.Coord, ext, name string, dirIsDefault bool) string {
	switch layout {
	case Viking:
		return filepath.Join(dir,
			fmt.Sprintf("t%ds%dz%d", typeID, tile.Zoom, tile.OSMZoom()),
			fmt.Sprintf("%d", tile.X),
			fmt.Sprintf("%d", tile.Y))
	default: // OSM
		base := dir
		if dirIsDefault && name != "" {
			base = filepath.Join(dir, name)
		}
		return filepath.Join(base,
			fmt.Sprintf("%d", tile.OSMZoom()),
			fmt.Sprintf("%d", tile.X),
			fmt.Sprintf("%d.%s", tile.Y, ext))
	}
}

// Store reads and writes tile files for one cache directory.
type Store struct {
	dir    string
	layout Layout
}

// New creates a Store rooted at dir using the given layout.
func New(dir string, layout Layout) *Store {
	return &Store{dir: dir, layout: layout}
}

// Load decodes the tile file at path. A missing file or a file that fails
// to decode is reported via (nil, err); corrupt files are never
// deleted here — deletion only happens in explicit redownload modes
// handled by the downloader.
func (s *Store) Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("diskstore: decode %s: %w", path, err)
	}
	return img, nil
}

// LoadBytes reads the raw bytes of the tile file at path without decoding.
func (s *Store) LoadBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists reports whether a tile file is present on disk.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteAtomic writes data to path via a temporary file in the same
// directory followed by an atomic rename, so concurrent readers never
// observe a torn file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("diskstore: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tile-*.tmp")
	if err != nil {
		return fmt.Errorf("diskstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: rename into place: %w", err)
	}
	return nil
}

// EncodeForWrite re-encodes img as the given extension, for sources that
// render or recompress locally (Mapnik) rather than passing through bytes
// fetched verbatim from a remote server.
func EncodeForWrite(img image.Image, ext string) ([]byte, error) {
	path, err := os.CreateTemp("", "encode-*."+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path.Name())
	defer path.Close()

	switch ext {
	case "png":
		if err := png.Encode(path, img); err != nil {
			return nil, err
		}
	case "jpg", "jpeg":
		if err := jpeg.Encode(path, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("diskstore: unsupported encode extension %q", ext)
	}
	return os.ReadFile(path.Name())
}
