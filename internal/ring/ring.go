// Package ring implements the bounded, mutex+condvar-guarded request ring
// that carries build requests from lookup-side goroutines to the transfer
// worker pool (texcache's u2x ring). The teacher's internal/genring rotates
// whole byte-capacity arenas for bulk TTL expiry; this ring instead holds a
// fixed number of small value-typed tuples in a circular slice, which is
// the idiomatic Go shape for a bounded producer/consumer queue and avoids
// the raw byte-packing the original C implementation needed. Capacity is
// rounded up to a power of two (internal/bitutil) so the head/tail cursors
// advance with mask arithmetic instead of modulo on the hot path.
//
// © 2025 texcache authors. MIT License.
package ring

import (
    "sync"
    "time"

    "github.com/Voskan/texcache/internal/bitutil"
)

// Ring is a bounded FIFO queue of T. Enqueue supports an absolute deadline;
// Dequeue blocks indefinitely until an item is available or the ring is
// closed. Broadcasting on both enqueue and dequeue (rather than Signal) is
// required because both producers and consumers may be parked waiting on
// capacity or occupancy respectively.
type Ring[T any] struct {
    mu     sync.Mutex
    cv     *sync.Cond
    buf    []T
    mask   int // len(buf) - 1, buf's length is always a power of two
    head   int // next slot to read
    count  int // occupied slots
    closed bool
}

// New constructs a ring with room for at least capacity items. The actual
// capacity is rounded up to the next power of two; callers that need the
// effective size should read it back via Cap rather than assuming it
// matches capacity exactly.
func New[T any](capacity int) *Ring[T] {
    if capacity <= 0 {
        panic("ring: capacity must be > 0")
    }
    size := bitutil.NextPowerOfTwo(capacity)
    r := &Ring[T]{buf: make([]T, size), mask: size - 1}
    r.cv = sync.NewCond(&r.mu)
    return r
}

// Cap returns the ring's fixed capacity in items.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of currently occupied slots.
func (r *Ring[T]) Len() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.count
}

// Enqueue writes v into the ring. If the ring is full it waits until space
// frees up or deadline passes, whichever comes first; a zero deadline means
// wait forever. Returns false if the deadline elapsed first or the ring was
// closed.
func (r *Ring[T]) Enqueue(v T, deadline time.Time) bool {
    r.mu.Lock()
    defer r.mu.Unlock()

    var timer *time.Timer
    if !deadline.IsZero() {
        d := time.Until(deadline)
        if d < 0 {
            d = 0
        }
        timer = time.AfterFunc(d, r.cv.Broadcast)
        defer timer.Stop()
    }

    for {
        if r.closed {
            return false
        }
        if r.count < len(r.buf) {
            tail := (r.head + r.count) & r.mask
            r.buf[tail] = v
            r.count++
            r.cv.Broadcast()
            return true
        }
        if !deadline.IsZero() && !time.Now().Before(deadline) {
            return false
        }
        r.cv.Wait()
    }
}

// Dequeue blocks until an item is available or the ring is closed, in which
// case ok is false and v is the zero value.
func (r *Ring[T]) Dequeue() (v T, ok bool) {
    r.mu.Lock()
    defer r.mu.Unlock()
    for r.count == 0 && !r.closed {
        r.cv.Wait()
    }
    if r.count == 0 {
        return v, false
    }
    v = r.buf[r.head]
    var zero T
    r.buf[r.head] = zero
    r.head = (r.head + 1) & r.mask
    r.count--
    r.cv.Broadcast()
    return v, true
}

// Close marks the ring closed and wakes every blocked producer and
// consumer. Subsequent Enqueue calls return false immediately; Dequeue
// drains whatever remains, then returns ok=false once empty.
func (r *Ring[T]) Close() {
    r.mu.Lock()
    r.closed = true
    r.cv.Broadcast()
    r.mu.Unlock()
}
