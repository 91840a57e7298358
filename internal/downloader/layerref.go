package downloader

import "sync/atomic"

// LayerGeneration is held by the layer that owns a set of download jobs. It
// replaces the original's weak pointer to the owning layer: destroying the
// layer bumps the generation so in-flight jobs can detect that no one is
// listening for their callbacks anymore, without racing a raw pointer.
type LayerGeneration struct {
	gen atomic.Int64
}

// Destroy invalidates every LayerRef issued so far. Jobs already holding a
// ref will see it become stale the next time they check it.
func (l *LayerGeneration) Destroy() {
	l.gen.Add(1)
}

// Ref captures the current generation as a weak-reference equivalent: a job
// created with this ref calls back to the layer only if the generation is
// still current when the callback fires.
func (l *LayerGeneration) Ref() LayerRef {
	return LayerRef{owner: l, snapshot: l.gen.Load()}
}

// LayerRef is a point-in-time capture of a LayerGeneration.
type LayerRef struct {
	owner    *LayerGeneration
	snapshot int64
}

// Valid reports whether the owning layer is still the same instance it was
// when the ref was captured, i.e. it has not been destroyed since.
func (r LayerRef) Valid() bool {
	if r.owner == nil {
		return true
	}
	return r.owner.gen.Load() == r.snapshot
}
