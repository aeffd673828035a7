package registry

import (
	"inferd/internal/codec"
	"inferd/internal/executor"
)

// State represents the lifecycle state of a model entry.
type State string

const (
	StateUnknown     State = "UNKNOWN"
	StateLoading     State = "LOADING"
	StateReady       State = "READY"
	StateUnavailable State = "UNAVAILABLE"
	StateUnloading   State = "UNLOADING"
)

// ModelKey identifies one model version. Keys held by the registry always
// carry a concrete version; the empty server-selected sentinel is resolved
// before a key enters the state table.
type ModelKey struct {
	Name    string
	Version string
}

func (k ModelKey) String() string {
	if k.Version == "" {
		return k.Name
	}
	return k.Name + "/" + k.Version
}

// Metadata is the published description of a loaded (or attempted) model.
type Metadata struct {
	Platform string
	Inputs   []codec.TensorSpec
	Outputs  []codec.TensorSpec
	Defaults map[string]codec.ParamValue
}

// Entry is an immutable committed snapshot of one model version. Readers get
// the pointer and may use it for the duration of a request; the registry never
// mutates a published Entry, it replaces the pointer.
type Entry struct {
	Key      ModelKey
	State    State
	Reason   string
	Metadata Metadata
	handle   *handleRef
}

// Acquire takes a reference on the entry's executor handle so the backend
// resources cannot be released mid-request. The returned release func must be
// called when the request finishes. Returns false when the entry has no live
// handle (not READY, or the handle was already drained away).
func (e *Entry) Acquire() (executor.Handle, func(), bool) {
	if e.handle == nil || !e.handle.acquire() {
		return nil, nil, false
	}
	return e.handle.h, e.handle.release, true
}

// IndexEntry is one row of the registry index.
type IndexEntry struct {
	Key    ModelKey
	State  State
	Reason string
}

// slot holds the mutable per-key registry state: the committed snapshot plus
// the in-flight control-plane transition, if any. Guarded by Registry.mu.
type slot struct {
	cur     *Entry
	pending State // "" when no load/unload is in flight for the key
}

// ModelSource resolves a model name/version to a loadable description.
// An empty version selects the source's highest version for the name.
type ModelSource interface {
	Lookup(name, version string) (executor.Model, error)
}
