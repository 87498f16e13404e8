package texcache

// errors.go collects the sentinel errors texcache returns. These are all
// constructor-time misconfiguration errors: the cache's one externally
// visible runtime failure mode is a null Handle (see Lookup), not a Go
// error — texture_for never returns one.
//
// © 2025 texcache authors. MIT License.

import "errors"

var (
    errInvalidSlotCount    = errors.New("texcache: slot count must be > 0")
    errInvalidStripeCount  = errors.New("texcache: stripe count must be > 0")
    errInvalidRingCapacity = errors.New("texcache: ring capacity must be > 0")
    errInvalidWorkerCount  = errors.New("texcache: worker count must be > 0")
    errNilBackend          = errors.New("texcache: backend must not be nil")
    errNilHashStore        = errors.New("texcache: hash store must not be nil")
)
