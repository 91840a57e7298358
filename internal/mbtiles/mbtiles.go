// Package mbtiles reads tiles from a single-file SQLite tile archive
// following the MBTiles schema, with the TMS y-axis flip OSM-addressed
// callers expect. Grounded in the same query and driver used by
// mbtileserver-derived readers across the retrieved corpus.
package mbtiles

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Reader wraps a read-only handle on one .mbtiles file. Handles are
// per-source and closed on source destruction; concurrent reads from
// multiple goroutines on one handle are serialized by a mutex, since the
// underlying driver does not guarantee concurrent-read safety on one
// *sql.DB handle opened with a single connection.
type Reader struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens path read-only. The "immutable=1" query parameter lets SQLite
// skip its usual locking machinery for a file that external tools are not
// concurrently writing.
func Open(path string) (*Reader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("mbtiles: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("mbtiles: ping %s: %w", path, err)
	}
	return &Reader{db: db, path: path}, nil
}

// Close releases the underlying SQLite handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// ErrAbsent indicates the requested tile has no row (or more than one,
// which is treated the same as absent, with the caller expected to log a
// warning).
var ErrAbsent = fmt.Errorf("mbtiles: tile not present")

// GetTile fetches the tile at OSM-addressed (x, y, osmZoom), converting y
// to the archive's TMS row via tile_row = 2^zoom - 1 - y.
func (r *Reader) GetTile(x, y, osmZoom int) ([]byte, error) {
	tmsRow := (1 << uint(osmZoom)) - 1 - y

	r.mu.Lock()
	rows, err := r.db.Query(
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		osmZoom, x, tmsRow)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("mbtiles: query: %w", err)
	}
	defer rows.Close()

	var data []byte
	count := 0
	for rows.Next() {
		count++
		if count > 1 {
			continue
		}
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("mbtiles: scan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mbtiles: rows: %w", err)
	}
	if count == 0 {
		return nil, ErrAbsent
	}
	if count > 1 {
		return nil, fmt.Errorf("mbtiles: %w: %d duplicate rows for z=%d x=%d y=%d", ErrAbsent, count, osmZoom, x, y)
	}
	return data, nil
}

// Metadata reads one value from the MBTiles metadata table (name/value
// pairs, e.g. "format", "bounds", "minzoom").
func (r *Reader) Metadata(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var value string
	err := r.db.QueryRow(`SELECT value FROM metadata WHERE name = ?`, name).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}
