package repository

import (
	"fmt"

	"inferd/internal/codec"
	"inferd/internal/config"
	"inferd/internal/executor"
)

// TensorSetting declares one input or output tensor in a settings file.
type TensorSetting struct {
	Name     string  `json:"name" yaml:"name" toml:"name"`
	Datatype string  `json:"datatype" yaml:"datatype" toml:"datatype"`
	Shape    []int64 `json:"shape" yaml:"shape" toml:"shape"`
}

// ParamSetting declares one default parameter. Exactly one field may be set.
type ParamSetting struct {
	Bool   *bool   `json:"bool,omitempty" yaml:"bool,omitempty" toml:"bool,omitempty"`
	Int64  *int64  `json:"int64,omitempty" yaml:"int64,omitempty" toml:"int64,omitempty"`
	String *string `json:"string,omitempty" yaml:"string,omitempty" toml:"string,omitempty"`
	// Bytes supplies a raw tensor payload, used to fill optional inputs.
	Bytes []byte `json:"bytes,omitempty" yaml:"bytes,omitempty" toml:"bytes,omitempty"`
}

// Settings is the on-disk description of one model version.
type Settings struct {
	Name     string                  `json:"name" yaml:"name" toml:"name"`
	Version  string                  `json:"version" yaml:"version" toml:"version"`
	Platform string                  `json:"platform" yaml:"platform" toml:"platform"`
	URI      string                  `json:"uri" yaml:"uri" toml:"uri"`
	Inputs   []TensorSetting         `json:"inputs" yaml:"inputs" toml:"inputs"`
	Outputs  []TensorSetting         `json:"outputs" yaml:"outputs" toml:"outputs"`
	Defaults map[string]ParamSetting `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
}

func loadSettings(dir, path string) (executor.Model, error) {
	var s Settings
	if err := config.Decode(path, &s); err != nil {
		return executor.Model{}, err
	}
	if s.Name == "" {
		return executor.Model{}, fmt.Errorf("settings declare no model name")
	}
	if s.Version == "" {
		s.Version = "1"
	}
	if s.URI == "" {
		s.URI = dir
	}
	inputs, err := tensorSpecs("inputs", s.Inputs)
	if err != nil {
		return executor.Model{}, err
	}
	outputs, err := tensorSpecs("outputs", s.Outputs)
	if err != nil {
		return executor.Model{}, err
	}
	defaults, err := defaultParams(s.Defaults)
	if err != nil {
		return executor.Model{}, err
	}
	return executor.Model{
		Name:     s.Name,
		Version:  s.Version,
		Platform: s.Platform,
		URI:      s.URI,
		Inputs:   inputs,
		Outputs:  outputs,
		Defaults: defaults,
	}, nil
}

func tensorSpecs(kind string, ts []TensorSetting) ([]codec.TensorSpec, error) {
	specs := make([]codec.TensorSpec, 0, len(ts))
	seen := make(map[string]bool, len(ts))
	for i, t := range ts {
		if t.Name == "" {
			return nil, fmt.Errorf("%s[%d]: tensor has no name", kind, i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("%s: duplicate tensor %q", kind, t.Name)
		}
		seen[t.Name] = true
		dt, ok := codec.ParseDatatype(t.Datatype)
		if !ok {
			return nil, fmt.Errorf("%s %q: unsupported datatype %q", kind, t.Name, t.Datatype)
		}
		for _, d := range t.Shape {
			if d < -1 {
				return nil, fmt.Errorf("%s %q: bad dimension %d", kind, t.Name, d)
			}
		}
		specs = append(specs, codec.TensorSpec{Name: t.Name, Datatype: dt, Shape: t.Shape})
	}
	return specs, nil
}

func defaultParams(ds map[string]ParamSetting) (map[string]codec.ParamValue, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	out := make(map[string]codec.ParamValue, len(ds))
	for name, d := range ds {
		set := 0
		var v codec.ParamValue
		if d.Bool != nil {
			set++
			v = codec.BoolValue(*d.Bool)
		}
		if d.Int64 != nil {
			set++
			v = codec.Int64Value(*d.Int64)
		}
		if d.String != nil {
			set++
			v = codec.StringValue(*d.String)
		}
		if d.Bytes != nil {
			set++
			v = codec.BytesValue(d.Bytes)
		}
		if set != 1 {
			return nil, fmt.Errorf("default %q: exactly one value must be set", name)
		}
		out[name] = v
	}
	return out, nil
}
