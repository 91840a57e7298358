// Package mapsource defines the MapSource contract and its concrete
// variants (Slippy, WMS-C, Terraserver, Bing, Mapnik, MBTiles, Metatile,
// DirectFile). The Painter and Downloader depend only on the Source
// interface, replacing the original's inheritance-based polymorphic
// MapSource with a small interface and one concrete type per variant, per
// the redesign note in the source spec.
package mapsource

import (
	"context"
	"io"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/projection"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// AccessMode describes how a Source obtains tile bytes.
type AccessMode int

const (
	AccessNetworkSlippy AccessMode = iota
	AccessNetworkWMSC
	AccessDirectFile
	AccessMetatile
	AccessMBTiles
	AccessLocalRender
)

// Identity holds the stable, process-lifetime identity of a map source.
type Identity struct {
	MapTypeID int
	Label     string
}

// Geometry describes a source's tiling parameters.
type Geometry struct {
	TileSizeX, TileSizeY int
	ZMin, ZMax           int
	BBox                 BBox
	Drawmode             projection.Drawmode
}

// BBox is a geographic bounding box.
type BBox struct {
	North, South, East, West float64
}

// Contains reports whether geo falls within the box.
func (b BBox) Contains(geo projection.LatLon) bool {
	return geo.Lat <= b.North && geo.Lat >= b.South && geo.Lon >= b.West && geo.Lon <= b.East
}

// DownloadOutcome summarizes the result of one Download call.
type DownloadOutcome int

const (
	DownloadSuccess DownloadOutcome = iota
	DownloadNotModified
	DownloadHTTPError
	DownloadContentError
	DownloadWriteError
)

// DownloadHandle carries the per-request controls a Source's Download
// method needs: cancellation, conditional-GET validators, and the
// destination it must write to atomically.
type DownloadHandle struct {
	Ctx           context.Context
	DestPath      string
	ETag          string
	LastModified  string
	RedirectLimit int
}

// CopyrightEmit receives zero or more copyright/attribution strings for a
// draw region.
type CopyrightEmit func(text string)

// Source is the contract every map source variant implements. The Painter
// and Downloader depend only on this interface.
type Source interface {
	Identity() Identity
	Geometry() Geometry
	AccessMode() AccessMode

	// URLFor builds the remote URL for tile, for network-backed sources.
	// Local-only sources (DirectFile, Metatile, MBTiles, Mapnik) return
	// ("", false).
	URLFor(tile tilecoord.Coord) (string, bool)

	// FilePathFor returns the on-disk path for tile under the given cache
	// directory and layout.
	FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string

	// Download fetches tile into handle.DestPath. Network sources perform
	// an HTTP GET; local-render sources render in place; archive-backed
	// sources (Metatile, MBTiles) extract from their archive.
	Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error)

	// GetCopyright may invoke emit 0..N times for the given region/zoom.
	GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit)

	SupportsConditionalGet() bool
	FileExtension() string
}

// httpGetToFile is a small helper shared by network-backed variants: GET
// url, honoring redirect limits and conditional-GET validators, and write
// the body to handle.DestPath via an atomic rename.
func httpGetToFile(getter httpGetter, url string, handle DownloadHandle) (DownloadOutcome, error) {
	resp, notModified, err := getter.get(handle.Ctx, url, handle.ETag, handle.LastModified, handle.RedirectLimit)
	if err != nil {
		return DownloadHTTPError, err
	}
	if notModified {
		return DownloadNotModified, nil
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return DownloadContentError, err
	}
	if err := diskstore.WriteAtomic(handle.DestPath, data); err != nil {
		return DownloadWriteError, err
	}
	return DownloadSuccess, nil
}

// httpGetter abstracts the HTTP transport so variants are independently
// testable without a network.
type httpGetter interface {
	get(ctx context.Context, url, etag, lastModified string, redirectLimit int) (body io.ReadCloser, notModified bool, err error)
}
