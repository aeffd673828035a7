package registry

import (
	"context"
	"fmt"

	"inferd/internal/codec"
)

// Load transitions the named model through LOADING, creating its entry if
// absent. Exactly one load/unload may be in flight per key; a concurrent
// request on the same key fails with Conflict. On success the new metadata
// and handle are published atomically; on failure the entry becomes
// UNAVAILABLE unless this was a reload of a READY entry, in which case the
// previous handle keeps serving untouched.
func (r *Registry) Load(ctx context.Context, name, version string, params map[string]codec.ParamValue) error {
	model, err := r.source.Lookup(name, version)
	if err != nil {
		return err
	}
	model.Params = params
	key := ModelKey{Name: model.Name, Version: model.Version}

	r.mu.Lock()
	s := r.slots[key]
	if s != nil && s.pending != "" {
		op := s.pending
		r.mu.Unlock()
		return ErrConflict(key.Name, key.Version, op)
	}
	if s == nil {
		s = &slot{cur: &Entry{Key: key, State: StateLoading, Metadata: metadataFor(model)}}
		r.slots[key] = s
	}
	s.pending = StateLoading
	reload := s.cur.State == StateReady
	r.mu.Unlock()

	r.log.Info().Str("model", key.Name).Str("version", key.Version).Bool("reload", reload).Msg("load start")
	r.pub.Publish(Event{Name: "load_start", Model: key.Name, Version: key.Version, Fields: map[string]any{"reload": reload}})

	handle, err := r.exec.Load(ctx, model)
	if err != nil {
		r.mu.Lock()
		s.pending = ""
		if !reload {
			s.cur = &Entry{
				Key:      key,
				State:    StateUnavailable,
				Reason:   err.Error(),
				Metadata: metadataFor(model),
			}
		}
		// A failed reload must not take the previously READY handle offline;
		// the error is reported to the caller only.
		r.mu.Unlock()
		r.log.Error().Str("model", key.Name).Str("version", key.Version).Err(err).Msg("load failed")
		r.pub.Publish(Event{Name: "load_failed", Model: key.Name, Version: key.Version, Fields: map[string]any{"error": err.Error(), "reload": reload}})
		return fmt.Errorf("load %s: %w", key, err)
	}

	next := &Entry{
		Key:      key,
		State:    StateReady,
		Metadata: metadataFor(model),
		handle:   newHandleRef(handle),
	}
	r.mu.Lock()
	prev := s.cur
	s.cur = next
	s.pending = ""
	r.mu.Unlock()
	if prev.handle != nil {
		// Drop the registry's reference to the replaced handle; the backend
		// close runs once the last in-flight request using it finishes.
		prev.handle.release()
	}
	r.log.Info().Str("model", key.Name).Str("version", key.Version).Msg("load ready")
	r.pub.Publish(Event{Name: "load_ready", Model: key.Name, Version: key.Version, Fields: map[string]any{"reload": reload}})
	return nil
}
