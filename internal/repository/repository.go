// Package repository discovers loadable models on disk. Each model version
// lives in its own directory under the repository root and carries a
// model-settings file (json, yaml or toml) declaring its platform, artifact
// and tensor signatures.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"inferd/internal/executor"
	"inferd/internal/registry"
)

var settingsNames = []string{
	"model-settings.json",
	"model-settings.yaml",
	"model-settings.yml",
	"model-settings.toml",
}

// Repository implements registry.ModelSource over a settings directory tree.
type Repository struct {
	mu     sync.RWMutex
	root   string
	models map[registry.ModelKey]executor.Model
}

// Open scans root and returns the repository. A missing or empty root yields
// an empty repository; malformed settings files fail the scan.
func Open(root string) (*Repository, error) {
	r := &Repository{root: root, models: make(map[registry.ModelKey]executor.Model)}
	if root == "" {
		return r, nil
	}
	if err := r.Rescan(); err != nil {
		return nil, err
	}
	return r, nil
}

// Rescan rebuilds the model table from disk.
func (r *Repository) Rescan() error {
	abs, err := filepath.Abs(expandHome(r.root))
	if err != nil {
		return fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read repository: %w", err)
	}
	models := make(map[registry.ModelKey]executor.Model)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(abs, e.Name())
		path := findSettings(dir)
		if path == "" {
			continue
		}
		m, err := loadSettings(dir, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		key := registry.ModelKey{Name: m.Name, Version: m.Version}
		if _, dup := models[key]; dup {
			return fmt.Errorf("%s: duplicate model %s", path, key)
		}
		models[key] = m
	}
	r.mu.Lock()
	r.models = models
	r.mu.Unlock()
	return nil
}

// Lookup resolves a name/version to its model description. An empty version
// selects the highest version of the name.
func (r *Repository) Lookup(name, version string) (executor.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if version != "" {
		m, ok := r.models[registry.ModelKey{Name: name, Version: version}]
		if !ok {
			return executor.Model{}, registry.ErrNotFound(name, version)
		}
		return m, nil
	}
	var best executor.Model
	found := false
	for key, m := range r.models {
		if key.Name != name {
			continue
		}
		if !found || registry.CompareVersions(key.Version, best.Version) > 0 {
			best = m
			found = true
		}
	}
	if !found {
		return executor.Model{}, registry.ErrNotFound(name, version)
	}
	return best, nil
}

// Models lists every discovered model, in no particular order.
func (r *Repository) Models() []executor.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]executor.Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

func findSettings(dir string) string {
	for _, name := range settingsNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
