package registry

import "sort"

// Index returns a consistent point-in-time snapshot of all entries, sorted by
// name then version. It never blocks on in-flight loads or unloads; transient
// LOADING/UNLOADING transitions are reported so long-running operations stay
// visible. With readyOnly, only entries currently serving in READY state (and
// not mid-transition) are returned.
func (r *Registry) Index(readyOnly bool) []IndexEntry {
	r.mu.RLock()
	out := make([]IndexEntry, 0, len(r.slots))
	for key, s := range r.slots {
		state := s.cur.State
		if s.pending != "" {
			state = s.pending
		}
		if readyOnly && state != StateReady {
			continue
		}
		out = append(out, IndexEntry{Key: key, State: state, Reason: s.cur.Reason})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Name != out[j].Key.Name {
			return out[i].Key.Name < out[j].Key.Name
		}
		return CompareVersions(out[i].Key.Version, out[j].Key.Version) < 0
	})
	return out
}
