package pixmapcache

import (
	"fmt"
	"hash/fnv"

	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Fingerprint is the cache key identifying one rendered tile variant. Two
// tiles with identical fingerprints are interchangeable. The format is
// fixed to interoperate with the on-disk cache-stats tooling, mirroring the
// original "%d-%d-%d-%d-%d-%d-%d-%.3f-%.3f" layout byte for byte.
type Fingerprint string

// NewFingerprint builds the cache key for one tile variant. name is the
// map source's display name (hashed, not stored verbatim, matching the
// original's use of a string hash rather than the raw name).
func NewFingerprint(mapTypeID int, tile tilecoord.Coord, alpha uint8, xshrink, yshrink float64, name string) Fingerprint {
	nameHash := uint64(0)
	if name != "" {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		nameHash = h.Sum64()
	}
	return Fingerprint(fmt.Sprintf("%d-%d-%d-%d-%d-%d-%d-%.3f-%.3f",
		mapTypeID, tile.X, tile.Y, tile.Zoom, tile.Zone, nameHash, alpha, xshrink, yshrink))
}

// TypePrefix returns the key prefix used by flush_by_type: keys for one
// map_type_id all begin with "<type_id>-".
func TypePrefix(mapTypeID int) string {
	return fmt.Sprintf("%d-", mapTypeID)
}

// VariantPrefix returns the prefix shared by every alpha/shrink-factor
// variant of one tile, used by flush_matching to invalidate all cached
// renderings of a tile that was just redownloaded.
func VariantPrefix(mapTypeID int, tile tilecoord.Coord, name string) string {
	nameHash := uint64(0)
	if name != "" {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		nameHash = h.Sum64()
	}
	return fmt.Sprintf("%d-%d-%d-%d-%d-%d-", mapTypeID, tile.X, tile.Y, tile.Zoom, tile.Zone, nameHash)
}
