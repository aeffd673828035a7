package registry

import (
	"context"
	"time"

	"inferd/internal/codec"
)

// Unload transitions an entry through UNLOADING and removes it.
// The executor handle is not freed while any in-flight inference still holds
// a reference; the registry drops its own reference and waits, bounded by the
// drain timeout, after which the handle is force-released.
func (r *Registry) Unload(ctx context.Context, name, version string, params map[string]codec.ParamValue) error {
	r.mu.Lock()
	key := ModelKey{Name: name, Version: version}
	if version == "" {
		resolved, ok := r.resolveLocked(name)
		if !ok {
			r.mu.Unlock()
			return ErrNotFound(name, version)
		}
		key = resolved
	}
	s := r.slots[key]
	if s == nil {
		r.mu.Unlock()
		return ErrNotFound(name, version)
	}
	if s.pending != "" {
		op := s.pending
		r.mu.Unlock()
		return ErrConflict(key.Name, key.Version, op)
	}
	s.pending = StateUnloading
	ref := s.cur.handle
	r.mu.Unlock()

	r.log.Info().Str("model", key.Name).Str("version", key.Version).Msg("unload start")
	r.pub.Publish(Event{Name: "unload_start", Model: key.Name, Version: key.Version})

	if ref != nil {
		ref.release()
		deadline := time.Now().Add(r.drainTimeout)
		for !ref.closed.Load() {
			if time.Now().After(deadline) {
				r.log.Warn().Str("model", key.Name).Str("version", key.Version).
					Int64("refs", ref.refs.Load()).Msg("drain timeout, force releasing handle")
				r.pub.Publish(Event{Name: "unload_timeout", Model: key.Name, Version: key.Version, Fields: map[string]any{"refs": ref.refs.Load()}})
				ref.close()
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	r.mu.Lock()
	delete(r.slots, key)
	r.mu.Unlock()

	r.log.Info().Str("model", key.Name).Str("version", key.Version).Msg("unload done")
	r.pub.Publish(Event{Name: "unload_done", Model: key.Name, Version: key.Version})
	return nil
}
