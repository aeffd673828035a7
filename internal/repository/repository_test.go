package repository

import (
	"os"
	"path/filepath"
	"testing"

	"inferd/internal/codec"
	"inferd/internal/registry"
)

func writeModel(t *testing.T, root, dir, file, content string) {
	t.Helper()
	d := filepath.Join(root, dir)
	if err := os.MkdirAll(d, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d, file), []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func TestOpenScansSettings(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "sum-v1", "model-settings.json", `{
		"name": "sum",
		"version": "1",
		"platform": "onnx",
		"inputs": [{"name": "x", "datatype": "FP32", "shape": [-1]}],
		"outputs": [{"name": "y", "datatype": "FP32", "shape": [-1]}]
	}`)
	writeModel(t, root, "sum-v2", "model-settings.yaml", `
name: sum
version: "2"
platform: onnx
inputs:
  - name: x
    datatype: FP32
    shape: [-1, 3]
outputs:
  - name: y
    datatype: FP32
    shape: [-1, 3]
`)
	writeModel(t, root, "tok", "model-settings.toml", `
name = "tok"
platform = "tokenizer"

[[inputs]]
name = "text"
datatype = "BYTES"
shape = [-1]

[[outputs]]
name = "ids"
datatype = "INT64"
shape = [-1]
`)
	// Directories without a settings file are skipped, not errors.
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	repo, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := len(repo.Models()); got != 3 {
		t.Fatalf("discovered %d models, want 3", got)
	}

	m, err := repo.Lookup("sum", "1")
	if err != nil {
		t.Fatalf("Lookup sum/1: %v", err)
	}
	if m.Platform != "onnx" || len(m.Inputs) != 1 || m.Inputs[0].Datatype != codec.Fp32 {
		t.Fatalf("unexpected model: %+v", m)
	}
	if m.URI != filepath.Join(root, "sum-v1") {
		t.Fatalf("URI not defaulted to model dir: %q", m.URI)
	}

	// Empty version resolves to the highest.
	m, err = repo.Lookup("sum", "")
	if err != nil {
		t.Fatalf("Lookup sum: %v", err)
	}
	if m.Version != "2" {
		t.Fatalf("resolved version = %q, want 2", m.Version)
	}

	// Version defaults to "1" when the settings omit it.
	m, err = repo.Lookup("tok", "1")
	if err != nil {
		t.Fatalf("Lookup tok/1: %v", err)
	}
	if m.Inputs[0].Datatype != codec.Bytes {
		t.Fatalf("tok input datatype = %s", m.Inputs[0].Datatype)
	}

	if _, err := repo.Lookup("ghost", ""); !registry.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := repo.Lookup("sum", "9"); !registry.IsNotFound(err) {
		t.Fatalf("expected NotFound for unknown version, got %v", err)
	}
}

func TestOpenEmptyRoot(t *testing.T) {
	repo, err := Open("")
	if err != nil {
		t.Fatalf("Open with empty root: %v", err)
	}
	if len(repo.Models()) != 0 {
		t.Fatalf("empty repository is not empty")
	}

	// A nonexistent root behaves like an empty one.
	repo, err = Open(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Open with missing root: %v", err)
	}
	if len(repo.Models()) != 0 {
		t.Fatalf("missing root repository is not empty")
	}
}

func TestOpenRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no model name", `{"version": "1"}`},
		{"bad datatype", `{"name": "m", "inputs": [{"name": "x", "datatype": "FP128", "shape": [1]}]}`},
		{"unnamed tensor", `{"name": "m", "inputs": [{"datatype": "FP32", "shape": [1]}]}`},
		{"duplicate tensor", `{"name": "m", "inputs": [
			{"name": "x", "datatype": "FP32", "shape": [1]},
			{"name": "x", "datatype": "FP32", "shape": [1]}]}`},
		{"bad dimension", `{"name": "m", "inputs": [{"name": "x", "datatype": "FP32", "shape": [-2]}]}`},
		{"ambiguous default", `{"name": "m", "defaults": {"p": {"bool": true, "int64": 3}}}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeModel(t, root, "m", "model-settings.json", tc.content)
			if _, err := Open(root); err == nil {
				t.Fatalf("Open accepted bad settings")
			}
		})
	}
}

func TestOpenRejectsDuplicateModels(t *testing.T) {
	root := t.TempDir()
	settings := `{"name": "m", "version": "1"}`
	writeModel(t, root, "copy-a", "model-settings.json", settings)
	writeModel(t, root, "copy-b", "model-settings.json", settings)
	if _, err := Open(root); err == nil {
		t.Fatalf("Open accepted two directories declaring the same model/version")
	}
}

func TestRescanPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "m1", "model-settings.json", `{"name": "m", "version": "1"}`)

	repo, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := repo.Lookup("m", "2"); !registry.IsNotFound(err) {
		t.Fatalf("expected NotFound before rescan, got %v", err)
	}

	writeModel(t, root, "m2", "model-settings.json", `{"name": "m", "version": "2"}`)
	if err := repo.Rescan(); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if _, err := repo.Lookup("m", "2"); err != nil {
		t.Fatalf("Lookup after rescan: %v", err)
	}
}

func TestDefaultsDecode(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "m", "model-settings.json", `{
		"name": "m",
		"defaults": {
			"greedy": {"bool": true},
			"beam": {"int64": 4},
			"mode": {"string": "fast"}
		}
	}`)

	repo, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m, err := repo.Lookup("m", "1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if m.Defaults["greedy"].Kind != codec.KindBool || !m.Defaults["greedy"].Bool {
		t.Fatalf("greedy default = %+v", m.Defaults["greedy"])
	}
	if m.Defaults["beam"].Int64 != 4 {
		t.Fatalf("beam default = %+v", m.Defaults["beam"])
	}
	if m.Defaults["mode"].String != "fast" {
		t.Fatalf("mode default = %+v", m.Defaults["mode"])
	}
}
