package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	ServerName     string   `json:"server_name" yaml:"server_name" toml:"server_name"`
	ServerVersion  string   `json:"server_version" yaml:"server_version" toml:"server_version"`
	Extensions     []string `json:"extensions" yaml:"extensions" toml:"extensions"`
	RepositoryRoot string   `json:"repository_root" yaml:"repository_root" toml:"repository_root"`
	// DrainTimeoutMS bounds how long an unload waits for in-flight requests.
	DrainTimeoutMS int `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`
	// StartupModels are loaded (server-selected version) before serving.
	StartupModels []string `json:"startup_models" yaml:"startup_models" toml:"startup_models"`
	// EventsURL enables NATS lifecycle event publishing when set.
	EventsURL     string   `json:"events_url" yaml:"events_url" toml:"events_url"`
	EventsSubject string   `json:"events_subject" yaml:"events_subject" toml:"events_subject"`
	MaxBodyBytes  int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled   bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	if err := Decode(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode unmarshals a settings file into v, picking the codec by extension.
func Decode(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}
