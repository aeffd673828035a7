package registry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/executor"
)

const defaultDrainTimeout = 30 * time.Second

// Config wires a Registry's collaborators. Executor and Source are required.
type Config struct {
	Executor     executor.Executor
	Source       ModelSource
	DrainTimeout time.Duration
	Publisher    EventPublisher
	Logger       zerolog.Logger
}

// Registry holds the authoritative state of every model/version pair. All
// mutation goes through Load/Unload, which serialize per key; readers only
// ever observe committed immutable Entry snapshots.
type Registry struct {
	mu    sync.RWMutex
	slots map[ModelKey]*slot

	exec         executor.Executor
	source       ModelSource
	drainTimeout time.Duration
	pub          EventPublisher
	log          zerolog.Logger
}

func New(cfg Config) *Registry {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	return &Registry{
		slots:        make(map[ModelKey]*slot),
		exec:         cfg.Executor,
		source:       cfg.Source,
		drainTimeout: cfg.DrainTimeout,
		pub:          cfg.Publisher,
		log:          cfg.Logger,
	}
}

// Get returns the committed snapshot for a key. With allowResolve an empty
// version is resolved to the highest READY version of the name. The snapshot
// is stable for the caller even if a reload commits concurrently.
func (r *Registry) Get(name, version string, allowResolve bool) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := ModelKey{Name: name, Version: version}
	if version == "" {
		if !allowResolve {
			return nil, ErrNotFound(name, version)
		}
		resolved, ok := r.resolveLocked(name)
		if !ok {
			return nil, ErrNotFound(name, version)
		}
		key = resolved
	}
	s := r.slots[key]
	if s == nil {
		return nil, ErrNotFound(name, version)
	}
	if s.pending == StateUnloading {
		return nil, ErrNotReady(key.Name, key.Version, StateUnloading)
	}
	return s.cur, nil
}

// Ready reports whether every registered model is READY. A registry with no
// models is ready.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.slots {
		if s.cur.State != StateReady || s.pending == StateUnloading {
			return false
		}
	}
	return true
}

// ModelReady reports whether the named model/version can serve inference.
func (r *Registry) ModelReady(name, version string) bool {
	e, err := r.Get(name, version, true)
	return err == nil && e.State == StateReady
}

// Versions lists the known versions of a model name, oldest first.
func (r *Registry) Versions(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for key := range r.slots {
		if key.Name == name {
			out = append(out, key.Version)
		}
	}
	sortVersions(out)
	return out
}

func metadataFor(m executor.Model) Metadata {
	return Metadata{
		Platform: m.Platform,
		Inputs:   m.Inputs,
		Outputs:  m.Outputs,
		Defaults: m.Defaults,
	}
}
