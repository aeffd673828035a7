package dispatch

import (
	"fmt"

	"inferd/internal/codec"
	"inferd/internal/registry"
	"inferd/pkg/v2"
)

// decodeInputs validates every request input against the model's declared
// specs and converts them to runtime tensors in spec order. Spec-declared
// inputs missing from the request are filled from the model's default
// parameters when one exists.
func decodeInputs(entry *registry.Entry, req *v2.ModelInferRequest) ([]*codec.Tensor, error) {
	if len(req.RawInputContents) > 0 && len(req.RawInputContents) != len(req.Inputs) {
		return nil, codec.ErrInvalidArgument("raw_input_contents",
			fmt.Sprintf("%d raw buffers for %d inputs, counts must match", len(req.RawInputContents), len(req.Inputs)))
	}

	specs := entry.Metadata.Inputs
	specByName := make(map[string]codec.TensorSpec, len(specs))
	for _, spec := range specs {
		specByName[spec.Name] = spec
	}

	byName := make(map[string]int, len(req.Inputs))
	for i, in := range req.Inputs {
		if in == nil || in.Name == "" {
			return nil, codec.ErrInvalidArgument("inputs", fmt.Sprintf("input %d has no name", i))
		}
		if _, dup := byName[in.Name]; dup {
			return nil, codec.ErrInvalidArgument(in.Name, "input supplied more than once")
		}
		if _, known := specByName[in.Name]; !known {
			return nil, codec.ErrInvalidArgument(in.Name, "not an input of model "+entry.Key.String())
		}
		if _, err := codec.DecodeParameters(in.Parameters); err != nil {
			return nil, err
		}
		byName[in.Name] = i
	}

	tensors := make([]*codec.Tensor, 0, len(specs))
	for _, spec := range specs {
		idx, present := byName[spec.Name]
		if !present {
			def, ok := entry.Metadata.Defaults[spec.Name]
			if !ok {
				return nil, codec.ErrInvalidArgument(spec.Name, "missing required input")
			}
			t, err := defaultTensor(spec, def)
			if err != nil {
				return nil, err
			}
			tensors = append(tensors, t)
			continue
		}
		in := req.Inputs[idx]
		if in.Datatype != string(spec.Datatype) {
			return nil, codec.ErrInvalidArgument(in.Name,
				fmt.Sprintf("declared datatype %s, model expects %s", in.Datatype, spec.Datatype))
		}
		if err := matchShape(spec, in.Shape); err != nil {
			return nil, err
		}
		var raw []byte
		hasRaw := false
		if len(req.RawInputContents) > 0 {
			raw = req.RawInputContents[idx]
			hasRaw = true
		}
		t, err := codec.DecodeTensor(in.Name, in.Datatype, in.Shape, in.Contents, raw, hasRaw)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}
	return tensors, nil
}

// matchShape checks a request shape against a spec shape: every variable (-1)
// spec dimension accepts any concrete size, fixed dimensions must match
// exactly, and the request shape itself must be fully concrete.
func matchShape(spec codec.TensorSpec, shape []int64) error {
	if len(shape) != len(spec.Shape) {
		return codec.ErrInvalidArgument(spec.Name,
			fmt.Sprintf("shape %v has %d dimensions, model expects %d (%v)", shape, len(shape), len(spec.Shape), spec.Shape))
	}
	for i, got := range shape {
		if got < 0 {
			return codec.ErrInvalidArgument(spec.Name,
				fmt.Sprintf("shape %v is not concrete at dimension %d", shape, i))
		}
		if spec.Shape[i] >= 0 && spec.Shape[i] != got {
			return codec.ErrInvalidArgument(spec.Name,
				fmt.Sprintf("shape %v does not match model shape %v at dimension %d", shape, spec.Shape, i))
		}
	}
	return nil
}

// defaultTensor materializes an optional input from the model's default
// parameter map. The default must carry a raw tensor payload and the spec
// shape must be fully concrete, since there is no request to size it from.
func defaultTensor(spec codec.TensorSpec, def codec.ParamValue) (*codec.Tensor, error) {
	if def.Kind != codec.KindBytes {
		return nil, codec.ErrInvalidArgument(spec.Name, "default value is not a raw tensor payload")
	}
	t := &codec.Tensor{Name: spec.Name, Datatype: spec.Datatype, Shape: spec.Shape, Data: def.Bytes}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
