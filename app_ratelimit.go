package main

import (
	"context"
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/downloader"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// CacheStats is a JSON-friendly snapshot of the shared pixmap cache.
type CacheStats struct {
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"sizeBytes"`
	MaxBytes  int64   `json:"maxBytes"`
	SizeMB    float64 `json:"sizeMB"`
	MaxMB     float64 `json:"maxMB"`
}

// GetCacheStats reports the shared in-memory pixmap cache's current
// occupancy, used by the frontend's cache readout.
func (a *App) GetCacheStats() CacheStats {
	a.mu.Lock()
	maxBytes := a.settings.CacheMaxBytes
	a.mu.Unlock()

	return CacheStats{
		Entries:   a.cache.Count(),
		SizeBytes: a.cache.Size(),
		MaxBytes:  maxBytes,
		SizeMB:    float64(a.cache.Size()) / 1024 / 1024,
		MaxMB:     float64(maxBytes) / 1024 / 1024,
	}
}

// ClearCache empties the shared pixmap cache; on-disk tiles are untouched.
func (a *App) ClearCache() {
	a.cache.Flush()
}

// RectRequest is the frontend's tile-index rectangle for a bulk download,
// expressed in OSM zoom/x/y terms.
type RectRequest struct {
	OSMZoom int   `json:"osmZoom"`
	XMin    int32 `json:"xMin"`
	XMax    int32 `json:"xMax"`
	YMin    int32 `json:"yMin"`
	YMax    int32 `json:"yMax"`
}

// DownloadJobInfo is the JSON-friendly view of a downloader.Job.
type DownloadJobInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Done   int64  `json:"done"`
	Total  int64  `json:"total"`
}

var redownloadModes = map[string]downloader.Mode{
	"none":        downloader.None,
	"bad":         downloader.Bad,
	"conditional": downloader.Conditional,
	"all":         downloader.All,
	"orRefresh":   downloader.OrRefresh,
}

// SubmitDownload enqueues a background fetch of rect for mapTypeID's
// layer, returning the job id the frontend polls via GetDownloadProgress.
func (a *App) SubmitDownload(mapTypeID int, rect RectRequest, mode string, confirmLargeRequest bool) (string, error) {
	a.mu.Lock()
	l, ok := a.layers[mapTypeID]
	a.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("app: no layer registered for map type %d", mapTypeID)
	}

	dlMode, ok := redownloadModes[mode]
	if !ok {
		return "", fmt.Errorf("app: unknown redownload mode %q", mode)
	}

	dlRect := downloader.TileRect{
		XMin: rect.XMin, XMax: rect.XMax, YMin: rect.YMin, YMax: rect.YMax,
		Zoom: tilecoord.FromOSMZoom(rect.OSMZoom),
	}

	job, err := l.downloader.Submit(context.Background(), dlRect, dlMode, l.source, l.painter.LayerRef, downloader.PoolRemote, confirmLargeRequest, nil)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	l.jobs[job.ID] = job
	a.mu.Unlock()
	a.track("download_submitted", map[string]interface{}{
		"mapTypeId": mapTypeID, "mode": mode, "tileCount": dlRect.Count(),
	})
	return job.ID, nil
}

// GetDownloadProgress reports one job's current state.
func (a *App) GetDownloadProgress(mapTypeID int, jobID string) (*DownloadJobInfo, error) {
	a.mu.Lock()
	l, ok := a.layers[mapTypeID]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("app: no layer registered for map type %d", mapTypeID)
	}

	a.mu.Lock()
	job, ok := l.jobs[jobID]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("app: no job %s for map type %d", jobID, mapTypeID)
	}

	done, total := job.Progress()
	return &DownloadJobInfo{ID: job.ID, Status: statusName(job.Status()), Done: done, Total: total}, nil
}

// CancelDownload requests cancellation of an in-flight job.
func (a *App) CancelDownload(mapTypeID int, jobID string) error {
	a.mu.Lock()
	l, ok := a.layers[mapTypeID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("app: no layer registered for map type %d", mapTypeID)
	}

	a.mu.Lock()
	job, ok := l.jobs[jobID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("app: no job %s for map type %d", jobID, mapTypeID)
	}
	job.Cancel()
	return nil
}

func statusName(s downloader.Status) string {
	switch s {
	case downloader.StatusQueued:
		return "queued"
	case downloader.StatusRunning:
		return "running"
	case downloader.StatusCompleted:
		return "completed"
	case downloader.StatusFailed:
		return "failed"
	default:
		return "cancelled"
	}
}
