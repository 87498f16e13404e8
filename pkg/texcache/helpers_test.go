package texcache

import (
    "context"
    "testing"
    "time"
)

func testCtx(t *testing.T) context.Context {
    t.Helper()
    return context.Background()
}

// pollUntil polls cond every millisecond until it returns true or timeout
// elapses, at which point it fails the test. Used to wait for the
// background worker pool to drain a build request without sleeping a fixed
// guessed duration.
func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) {
    t.Helper()
    deadline := time.Now().Add(timeout)
    for {
        if cond() {
            return
        }
        if time.Now().After(deadline) {
            t.Fatalf("condition not met within %s", timeout)
        }
        time.Sleep(time.Millisecond)
    }
}

func rgba8Topology(w, h int16) Topology {
    return Topology{Width: w, Height: h, Format: FormatRGBA8}
}
