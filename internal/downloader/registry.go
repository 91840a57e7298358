package downloader

import (
	"sync"

	"github.com/walkthru-earth/tilecore/internal/pixmapcache"
)

// registry de-duplicates in-flight fetches: at most one active fetch per
// tile fingerprint at any time. A second submission for the same
// fingerprint waits on the first's completion signal instead of issuing a
// second network request.
type registry struct {
	mu      sync.Mutex
	inFlight map[pixmapcache.Fingerprint]chan struct{}
}

func newRegistry() *registry {
	return &registry{inFlight: make(map[pixmapcache.Fingerprint]chan struct{})}
}

// claim registers fp as in-flight and returns (done, true) when the caller
// is the first to claim it and must perform the fetch. If another fetch is
// already in flight it returns (done, false); the caller should wait on
// done instead.
func (r *registry) claim(fp pixmapcache.Fingerprint) (done <-chan struct{}, owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, exists := r.inFlight[fp]; exists {
		return ch, false
	}
	ch := make(chan struct{})
	r.inFlight[fp] = ch
	return ch, true
}

// release marks fp's fetch complete and wakes any waiters.
func (r *registry) release(fp pixmapcache.Fingerprint) {
	r.mu.Lock()
	ch, ok := r.inFlight[fp]
	delete(r.inFlight, fp)
	r.mu.Unlock()
	if ok {
		close(ch)
	}
}
