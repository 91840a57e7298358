// Package downloader implements background tile fetching: job
// registration with at-most-once-per-fingerprint de-duplication, a bounded
// worker pool per named resource ("remote" network fetches, "local"
// renders), redownload-mode policy, atomic writes, and progress/
// cancellation, grounded in the original's download loop
// (vikmapslayer.cpp) and the teacher's worker-pool shape
// (internal/downloads/esri/downloader.go).
package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/google/uuid"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/mapsource"
	"github.com/walkthru-earth/tilecore/internal/pixmapcache"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Pool names the two worker pools the original schedules jobs on.
type Pool string

const (
	PoolRemote Pool = "remote"
	PoolLocal  Pool = "local"
)

// TileRect is an inclusive tile-index rectangle at one zoom (and, for UTM
// sources, one zone).
type TileRect struct {
	XMin, XMax, YMin, YMax int32
	Zoom                   int32
	Zone                   int32
}

// Count returns the number of tiles in the rectangle.
func (r TileRect) Count() int64 {
	return int64(r.XMax-r.XMin+1) * int64(r.YMax-r.YMin+1)
}

// Status is a DownloadJob's lifecycle state.
type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// ProgressFunc reports tiles completed out of total, called from a worker
// goroutine; callers must not block in it for long.
type ProgressFunc func(done, total int64)

// Downloader schedules and runs DownloadJobs against one or more
// MapSources, de-duplicating concurrent fetches of the same tile
// fingerprint and bounding concurrency per named pool.
type Downloader struct {
	cacheDir string
	layout   diskstore.Layout
	cache    *pixmapcache.Cache

	remoteSem *semaphore.Weighted
	localSem  *semaphore.Weighted

	registry *registry

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	// OnRedraw is called after a tile's cache entry is invalidated so the
	// owner can schedule a repaint. Optional.
	OnRedraw func()
}

// New creates a Downloader. remoteWorkers and localWorkers bound
// concurrent fetches in each named pool.
func New(cacheDir string, layout diskstore.Layout, cache *pixmapcache.Cache, remoteWorkers, localWorkers int64) *Downloader {
	return &Downloader{
		cacheDir:  cacheDir,
		layout:    layout,
		cache:     cache,
		remoteSem: semaphore.NewWeighted(remoteWorkers),
		localSem:  semaphore.NewWeighted(localWorkers),
		registry:  newRegistry(),
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (d *Downloader) limiterFor(host string) *rate.Limiter {
	d.limiterMu.Lock()
	defer d.limiterMu.Unlock()
	l, ok := d.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(10), 20) // 10 req/s, burst 20, per key (fetchOne keys by source label)
		d.limiters[host] = l
	}
	return l
}

// Job is one in-flight or completed download request.
type Job struct {
	ID       string
	Rect     TileRect
	Mode     Mode
	Source   mapsource.Source
	LayerRef LayerRef
	OnProgress ProgressFunc

	status   atomic.Int32
	done     atomic.Int64
	total    int64
	cancel   context.CancelFunc
	ctx      context.Context
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status { return Status(j.status.Load()) }

// Progress returns (done, total) tiles.
func (j *Job) Progress() (int64, int64) { return j.done.Load(), j.total }

// Cancel requests cancellation; the job checks the cancel flag between
// tiles and aborts within one tile's latency.
func (j *Job) Cancel() { j.cancel() }

// Submit validates rect against the size caps and starts a job running on
// pool p. ConfirmLargeRequest must be true when rect.Count() exceeds
// MaxTilesConfirm, matching the original's confirmation threshold. A
// request above MaxTilesPerRequest is rejected even when confirmed.
func (d *Downloader) Submit(ctx context.Context, rect TileRect, mode Mode, src mapsource.Source, ref LayerRef, p Pool, confirmLargeRequest bool, onProgress ProgressFunc) (*Job, error) {
	count := rect.Count()
	if count > MaxTilesHard {
		return nil, fmt.Errorf("downloader: request of %d tiles exceeds hard cap %d", count, MaxTilesHard)
	}
	if count > MaxTilesConfirm && !confirmLargeRequest {
		return nil, fmt.Errorf("downloader: request of %d tiles requires confirmation (cap %d)", count, MaxTilesConfirm)
	}
	if count > MaxTilesPerRequest {
		return nil, fmt.Errorf("downloader: request of %d tiles exceeds per-request cap %d", count, MaxTilesPerRequest)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID: uuid.NewString(), Rect: rect, Mode: mode, Source: src, LayerRef: ref,
		OnProgress: onProgress, total: count, ctx: jobCtx, cancel: cancel,
	}
	job.status.Store(int32(StatusQueued))

	sem := d.remoteSem
	if p == PoolLocal {
		sem = d.localSem
	}

	go d.run(job, sem)
	return job, nil
}

// run fans out one goroutine per tile, bounded by sem, and waits for all of
// them; an individual tile's fetch error is counted but never stops the
// others, matching the original's "log and continue" failure semantics.
func (d *Downloader) run(job *Job, sem *semaphore.Weighted) {
	job.status.Store(int32(StatusRunning))

	var wg sync.WaitGroup
	var anyFailure atomic.Bool
	cancelled := false

tileLoop:
	for x := job.Rect.XMin; x <= job.Rect.XMax; x++ {
		for y := job.Rect.YMin; y <= job.Rect.YMax; y++ {
			select {
			case <-job.ctx.Done():
				cancelled = true
				break tileLoop
			default:
			}

			if err := sem.Acquire(job.ctx, 1); err != nil {
				cancelled = true
				break tileLoop
			}

			tile := tilecoord.Coord{X: x, Y: y, Zoom: job.Rect.Zoom, Zone: job.Rect.Zone}
			wg.Add(1)
			go func(tile tilecoord.Coord) {
				defer wg.Done()
				defer sem.Release(1)

				if err := d.fetchOne(job, tile); err != nil {
					anyFailure.Store(true)
				}
				done := job.done.Add(1)
				if job.OnProgress != nil {
					job.OnProgress(done, job.total)
				}
			}(tile)
		}
	}

	wg.Wait()

	switch {
	case cancelled:
		job.status.Store(int32(StatusCancelled))
	case anyFailure.Load():
		job.status.Store(int32(StatusFailed))
	default:
		job.status.Store(int32(StatusCompleted))
	}
}

// fetchOne applies redownload policy, performs the fetch via the job
// registry's de-duplication, and invalidates the pixmap cache on success.
// Errors are counted but never abort the job loop, per spec: the download
// path is never fatal.
func (d *Downloader) fetchOne(job *Job, tile tilecoord.Coord) error {
	ident := job.Source.Identity()
	destPath := job.Source.FilePathFor(d.cacheDir, d.layout, tile, true)
	store := diskstore.New(d.cacheDir, d.layout)

	fp := pixmapcache.NewFingerprint(ident.MapTypeID, tile, 255, 1, 1, ident.Label)

	shouldFetch, preDelete := decidePolicy(job.Mode, store, destPath, job.Source.SupportsConditionalGet())
	if !shouldFetch {
		if job.Mode == OrRefresh {
			d.invalidateAndRedraw(fp, ident.MapTypeID, tile, ident.Label)
		}
		return nil
	}
	if preDelete {
		_ = removeIfExists(destPath)
	}

	done, owner := d.registry.claim(fp)
	if !owner {
		select {
		case <-done:
		case <-job.ctx.Done():
		}
		return nil
	}
	defer d.registry.release(fp)

	if limiter := d.limiterFor(ident.Label); limiter != nil {
		if err := limiter.Wait(job.ctx); err != nil {
			return err
		}
	}

	handle := mapsource.DownloadHandle{Ctx: job.ctx, DestPath: destPath, RedirectLimit: 5}
	if job.Mode == Conditional && job.Source.SupportsConditionalGet() {
		if info, err := os.Stat(destPath); err == nil {
			handle.LastModified = info.ModTime().UTC().Format(http.TimeFormat)
		}
	}
	outcome, err := job.Source.Download(tile, handle)
	if err != nil || outcome == mapsource.DownloadHTTPError || outcome == mapsource.DownloadContentError || outcome == mapsource.DownloadWriteError {
		return fmt.Errorf("downloader: fetch %s: %w", tile, err)
	}
	if outcome == mapsource.DownloadNotModified {
		return nil
	}

	if !job.LayerRef.Valid() {
		// Layer destroyed: finish silently without invalidating a cache
		// or requesting a redraw that nobody will see.
		return nil
	}

	d.invalidateAndRedraw(fp, ident.MapTypeID, tile, ident.Label)
	return nil
}

func (d *Downloader) invalidateAndRedraw(fp pixmapcache.Fingerprint, mapTypeID int, tile tilecoord.Coord, name string) {
	if d.cache != nil {
		d.cache.FlushMatching(pixmapcache.VariantPrefix(mapTypeID, tile, name))
	}
	if d.OnRedraw != nil {
		d.OnRedraw()
	}
}

func decidePolicy(mode Mode, store *diskstore.Store, path string, conditionalGet bool) (shouldFetch, preDelete bool) {
	exists := store.Exists(path)
	switch mode {
	case None:
		return !exists, false
	case Bad:
		if !exists {
			return true, false
		}
		if _, err := store.Load(path); err != nil {
			return true, false
		}
		return false, false
	case Conditional:
		return true, false // fetchOne adds If-Modified-Since when the source supports conditional GET
	case All:
		return true, exists
	case OrRefresh:
		return !exists, false
	default:
		return !exists, false
	}
}

func removeIfExists(path string) error {
	return removeFile(path)
}
