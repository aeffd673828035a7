package registry

import (
	"sync/atomic"

	"inferd/internal/executor"
)

// handleRef reference-counts one executor handle. The registry holds one
// reference from publish until unload/replacement; each in-flight inference
// holds one for its duration. The backend close runs when the count reaches
// zero, so an unload never frees resources out from under a request.
type handleRef struct {
	h      executor.Handle
	refs   atomic.Int64
	closed atomic.Bool
}

func newHandleRef(h executor.Handle) *handleRef {
	r := &handleRef{h: h}
	r.refs.Store(1)
	return r
}

// acquire takes a reference, failing once the count has already drained to zero.
func (r *handleRef) acquire() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (r *handleRef) release() {
	if r.refs.Add(-1) == 0 {
		r.close()
	}
}

// close is idempotent; forced drain-timeout release and the last reference
// racing each other must not double-close the backend.
func (r *handleRef) close() {
	if r.closed.CompareAndSwap(false, true) {
		_ = r.h.Close()
	}
}
