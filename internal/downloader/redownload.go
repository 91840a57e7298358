package downloader

// Mode selects when an already-cached tile is re-fetched.
type Mode int

const (
	// None skips any tile whose file already exists.
	None Mode = iota
	// Bad fetches a tile if it's missing, or if the existing file fails
	// to decode.
	Bad
	// Conditional fetches with a conditional GET (If-Modified-Since from the
	// existing file's modification time) when the source supports one;
	// otherwise fetches unconditionally.
	Conditional
	// All unconditionally fetches every tile, deleting any existing file
	// first.
	All
	// OrRefresh fetches only if missing, but always invalidates the
	// in-memory cache entry so the next draw reloads from disk.
	OrRefresh
)

// Bounds on request size, per the original's safety caps.
const (
	MaxTilesPerRequest = 1000
	MaxTilesHard       = 5000
	MaxTilesConfirm    = 500
)
