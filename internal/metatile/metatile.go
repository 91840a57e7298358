// Package metatile reads the packed 8x8 tile archive format used by
// OSM-style tile renderers, per the original's osm_metatile.cpp. A metatile
// file holds 64 tiles sharing one header; this package extracts a single
// tile's raw bytes from that archive.
package metatile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Size is the metatile edge length in tiles (8x8 = 64 tiles per archive).
const Size = 8

const (
	magicUncompressed = "META"
	magicCompressed   = "METZ"
)

// MaxTileBytes bounds a single sub-tile payload read from an archive,
// guarding against a corrupt index entry claiming an unreasonable size.
const MaxTileBytes = 16 * 1024 * 1024

// ErrCompressedUnsupported is returned for archives carrying the "METZ"
// magic. The original explicitly rejects compressed metatiles; this port
// preserves that rather than guessing at a decompression scheme.
var ErrCompressedUnsupported = fmt.Errorf("metatile: compressed (METZ) archives are not supported")

// ErrBadMagic is returned when the file doesn't start with a recognized
// magic value.
var ErrBadMagic = fmt.Errorf("metatile: unrecognized magic")

// ErrBadCount is returned when the header's tile count isn't 64.
var ErrBadCount = fmt.Errorf("metatile: header count is not 64")

type entry struct {
	Offset int32
	Size   int32
}

type header struct {
	Magic     [4]byte
	Count     int32
	X, Y, Z   int32
}

// HeaderSize is the byte size of the fixed header plus the index: 20 bytes
// of magic, count, x, y and z, followed by 8 bytes per index entry.
func HeaderSize(count int) int {
	return 20 + 8*count
}

// HashPath computes the 5-level hash path used to locate a metatile archive
// on disk for tile (x, y, z): dir/z/h4/h3/h2/h1/h0.meta. x and y are first
// rounded down to their 8x8 block, so every tile of one block maps to the
// same archive. Each hash level peels off the low 4 bits of x and y,
// interleaved into one byte, then shifts both coordinates right by 4.
func HashPath(dir string, x, y, z int) string {
	var hashParts [5]string
	xx, yy := x&^(Size-1), y&^(Size-1)
	for i := 0; i < 5; i++ {
		h := ((xx & 0x0f) << 4) | (yy & 0x0f)
		hashParts[i] = fmt.Sprintf("%d", h)
		xx >>= 4
		yy >>= 4
	}
	return fmt.Sprintf("%s/%d/%s/%s/%s/%s/%s.meta",
		dir, z, hashParts[4], hashParts[3], hashParts[2], hashParts[1], hashParts[0])
}

// Read opens the metatile archive covering tile (x, y, z) under dir and
// returns the raw payload bytes for that one tile.
func Read(dir string, x, y, z int) ([]byte, error) {
	path := HashPath(dir, x, y, z)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrom(f, x, y)
}

// ReadFrom extracts the sub-tile (x, y) from an already-open metatile
// archive reader. x and y are the absolute tile coordinates; only their low
// 3 bits (mod 8) select the sub-tile within the 8x8 block.
func ReadFrom(r io.ReadSeeker, x, y int) ([]byte, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("metatile: reading header: %w", err)
	}

	switch string(hdr.Magic[:]) {
	case magicUncompressed:
		// supported
	case magicCompressed:
		return nil, ErrCompressedUnsupported
	default:
		return nil, ErrBadMagic
	}

	if hdr.Count != Size*Size {
		return nil, ErrBadCount
	}

	entries := make([]entry, hdr.Count)
	if err := binary.Read(r, binary.LittleEndian, &entries); err != nil {
		return nil, fmt.Errorf("metatile: reading index: %w", err)
	}

	mask := Size - 1
	idx := (x&mask)*Size + (y & mask)
	if idx < 0 || idx >= len(entries) {
		return nil, fmt.Errorf("metatile: sub-tile index %d out of range", idx)
	}
	e := entries[idx]
	if e.Size <= 0 || e.Size > MaxTileBytes {
		return nil, fmt.Errorf("metatile: sub-tile size %d out of bounds", e.Size)
	}

	if _, err := r.Seek(int64(e.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("metatile: seeking to sub-tile: %w", err)
	}
	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("metatile: reading sub-tile payload: %w", err)
	}
	return buf, nil
}
