package texcache

import "context"

// collaborators.go declares the external interfaces texcache's transfer
// workers depend on: the content-hash store that produces byte blobs by
// Hash, and the GPU texture backend that turns bytes into a Handle. Neither
// is implemented by this package; the repository's only implementations are
// the test fakes and the benchmark stubs.

// HashStoreScope borrows bytes for its lifetime. Implementations typically
// wrap a read transaction; bytes returned by DataFromHash are only valid
// until Close.
type HashStoreScope interface {
    // DataFromHash returns the bytes for hash, or a nil/empty slice if the
    // content isn't available yet. A nil slice is not an error: the caller
    // treats it as "not yet ready" and retries on a later lookup once the
    // evictor has retired the node left with a null Handle.
    DataFromHash(ctx context.Context, hash Hash) ([]byte, error)

    // Close releases any resources borrowed by DataFromHash calls made
    // through this scope.
    Close()
}

// HashStore produces scopes over which content bytes can be borrowed.
type HashStore interface {
    // OpenScope begins a borrowing scope. The caller closes it when done.
    OpenScope(ctx context.Context) (HashStoreScope, error)
}

// Backend allocates and releases GPU-side texture storage.
type Backend interface {
    // AllocStatic2D allocates a static (immutable after upload) 2D texture
    // from bytes sized for topology. Implementations may return an error for
    // resource exhaustion; texcache treats any error the same as a failed
    // allocation — the node is left with a null Handle and a later lookup
    // retries after the evictor has retired that node.
    AllocStatic2D(ctx context.Context, topology Topology, bytes []byte) (Handle, error)

    // Release returns a previously allocated Handle's storage to the
    // backend. Called by the evictor when a node is retired. Release is
    // never called with a zero Handle.
    Release(ctx context.Context, h Handle) error
}
