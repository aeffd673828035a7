package registry

import (
	"sort"
	"strconv"
)

// CompareVersions orders model versions: numeric versions compare by value,
// a numeric version outranks a non-numeric one, and two non-numeric versions
// compare lexically. Returns <0, 0 or >0.
func CompareVersions(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aerr == nil:
		return 1
	case berr == nil:
		return -1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortVersions(vs []string) {
	sort.Slice(vs, func(i, j int) bool { return CompareVersions(vs[i], vs[j]) < 0 })
}

// resolveLocked picks the highest READY version of name. Callers hold r.mu.
func (r *Registry) resolveLocked(name string) (ModelKey, bool) {
	var best ModelKey
	found := false
	for key, s := range r.slots {
		if key.Name != name || s.cur.State != StateReady || s.pending == StateUnloading {
			continue
		}
		if !found || CompareVersions(key.Version, best.Version) > 0 {
			best = key
			found = true
		}
	}
	return best, found
}
