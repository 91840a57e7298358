package mapsource

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/walkthru-earth/tilecore/internal/attribution"
	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Bing is a quadkey-addressed source whose attribution is loaded once,
// asynchronously, from a metadata XML endpoint. Loading never retries on
// failure, matching the original: a failed attempt leaves GetCopyright a
// permanent no-op for the process's lifetime.
type Bing struct {
	Ident           Identity
	Geom            Geometry
	URLTemplate     string // "{q}" is replaced by the quadkey
	MetadataURL     string
	Ext             string

	transport httpGetter

	loading     atomic.Bool
	mu          sync.RWMutex
	records     []attribution.Record
	loaded      bool
	loadFailed  bool
}

func NewBing(ident Identity, geom Geometry, urlTemplate, metadataURL, ext string) *Bing {
	return &Bing{Ident: ident, Geom: geom, URLTemplate: urlTemplate, MetadataURL: metadataURL, Ext: ext, transport: newHTTPTransport(nil)}
}

func (b *Bing) Identity() Identity      { return b.Ident }
func (b *Bing) Geometry() Geometry      { return b.Geom }
func (b *Bing) AccessMode() AccessMode  { return AccessNetworkSlippy }
func (b *Bing) FileExtension() string   { return b.Ext }
func (b *Bing) SupportsConditionalGet() bool { return false }

// Quadkey derives Bing's base-4 tile address by interleaving the bits of x
// and y from high to low, per the original's quadkey construction.
func Quadkey(tile tilecoord.Coord) string {
	z := tile.OSMZoom()
	var sb strings.Builder
	for i := z; i > 0; i-- {
		digit := byte('0')
		mask := int32(1) << uint(i-1)
		if tile.X&mask != 0 {
			digit++
		}
		if tile.Y&mask != 0 {
			digit += 2
		}
		sb.WriteByte(digit)
	}
	return sb.String()
}

func (b *Bing) URLFor(tile tilecoord.Coord) (string, bool) {
	return strings.ReplaceAll(b.URLTemplate, "{q}", Quadkey(tile)), true
}

func (b *Bing) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return diskstore.PathFor(cacheDir, layout, b.Ident.MapTypeID, tile, b.Ext, b.Ident.Label, dirIsDefault)
}

func (b *Bing) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	url, _ := b.URLFor(tile)
	return httpGetToFile(b.transport, url, handle)
}

// GetCopyright triggers the one-shot attribution load on first call and is
// a no-op until that load completes. Concurrent calls are guarded by the
// loading flag so only one fetch is ever in flight.
func (b *Bing) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {
	b.mu.RLock()
	loaded, failed := b.loaded, b.loadFailed
	b.mu.RUnlock()

	if !loaded && !failed {
		if b.loading.CompareAndSwap(false, true) {
			go b.loadAttributions()
		}
		return
	}
	if failed {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, rec := range b.records {
		if rec.Covers(osmZoom, bbox.South, bbox.West, bbox.North, bbox.East) {
			emit(rec.Text)
		}
	}
}

func (b *Bing) loadAttributions() {
	defer b.loading.Store(false)

	resp, _, err := b.transport.get(context.Background(), b.MetadataURL, "", "", 5)
	if err != nil {
		b.mu.Lock()
		b.loadFailed = true
		b.mu.Unlock()
		return
	}
	defer resp.Close()

	records, err := attribution.Parse(resp)
	if err != nil {
		b.mu.Lock()
		b.loadFailed = true
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	b.records = records
	b.loaded = true
	b.mu.Unlock()
}
