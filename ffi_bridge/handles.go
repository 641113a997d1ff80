// Package ffibridge is the foreign-function boundary of the preflight engine.
// It registers caller-owned snapshot sources behind opaque numeric handles,
// wraps the orchestrator/calculator pipeline in a guarded executor so no fault
// ever unwinds across the boundary, and marshals outcomes into flat,
// explicitly-owned result records.
package ffibridge

import (
	"sync"
	"sync/atomic"

	"github.com/meridianchain/preflight/ledger"
)

// handleMap keeps a global registry of active snapshot handles that can be
// referenced across the FFI boundary. The key type is `uintptr` because
// that's what cgo uses when passing opaque pointers around.
var handleMap sync.Map // map[uintptr]ledger.SnapshotSource

// handleSeq is an atomically-incremented counter that yields unique, non-zero
// handles. We start from 1 to reserve the zero value for "null".
var handleSeq uintptr

// RegisterSnapshot registers a snapshot source and returns a stable handle
// that can safely cross the FFI boundary. The source stays registered until
// ReleaseSnapshot; one handle serves one caller-side snapshot context.
func RegisterSnapshot(src ledger.SnapshotSource) uintptr {
	if src == nil {
		return 0
	}
	h := atomic.AddUintptr(&handleSeq, 1)
	handleMap.Store(h, src)
	return h
}

// ReleaseSnapshot removes a previously registered handle. Boundary calls
// presenting the handle afterwards fail with an unknown-handle error.
func ReleaseSnapshot(h uintptr) {
	handleMap.Delete(h)
}

// lookupSnapshot fetches the source associated with the given handle. The
// boolean return signals whether the handle was found.
func lookupSnapshot(h uintptr) (ledger.SnapshotSource, bool) {
	if v, ok := handleMap.Load(h); ok {
		return v.(ledger.SnapshotSource), true
	}
	return nil, false
}
