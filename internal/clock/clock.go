// Package clock provides the two liveness axes used by texcache's evictor:
// a wall-clock microsecond timestamp and a host-advanced logical "user
// clock" tick counter. Both are read wait-free; NowMicros is the one source
// of the wall-clock timestamps that lookups stamp on nodes and the evictor
// compares against.
//
// © 2025 texcache authors. MIT License.
package clock

import (
    "sync/atomic"
    "time"
)

// NowMicros returns the current monotonic-ish wall-clock time in
// microseconds since the Unix epoch, matching the original's
// os_now_microseconds.
func NowMicros() uint64 {
    return uint64(time.Now().UnixMicro())
}

// User is a process-wide monotonic tick counter advanced by the host once
// per logical frame. It is the second axis of liveness: an entry survives
// eviction unless both the wall clock and the user clock have advanced past
// threshold since its last touch.
type User struct {
    idx atomic.Uint64
}

// Tick advances the user clock by one.
func (u *User) Tick() { u.idx.Add(1) }

// Idx reads the current user clock value.
func (u *User) Idx() uint64 { return u.idx.Load() }

// Expired reports whether a touch recorded at (touchedUs, touchedIdx) has
// exceeded both the wall-clock and user-clock thresholds as of (nowUs,
// nowIdx). Both axes must have advanced past their threshold — a host stall
// that freezes the user clock keeps entries alive regardless of how much
// wall-clock time passes, and vice versa.
func Expired(touchedUs, nowUs uint64, wallThreshold uint64, touchedIdx, nowIdx uint64, userThreshold uint64) bool {
    return touchedUs+wallThreshold <= nowUs && touchedIdx+userThreshold <= nowIdx
}
