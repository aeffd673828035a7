package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"inferd/internal/codec"
)

// Echo is an in-process backend that serves each declared output by echoing
// the first input of the same datatype. It performs no numeric work and exists
// so the engine can run end to end without a real backend linked in.
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Load(ctx context.Context, model Model) (Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &echoHandle{model: model}, nil
}

type echoHandle struct {
	model  Model
	closed atomic.Bool
}

func (h *echoHandle) Infer(ctx context.Context, inputs []*codec.Tensor) ([]*codec.Tensor, error) {
	if h.closed.Load() {
		return nil, fmt.Errorf("model %s is closed", h.model.Name)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	outputs := make([]*codec.Tensor, 0, len(h.model.Outputs))
	for _, spec := range h.model.Outputs {
		src := firstOfType(inputs, spec.Datatype)
		if src == nil {
			return nil, fmt.Errorf("no %s input to echo into output %q", spec.Datatype, spec.Name)
		}
		// Aliases the input buffer; tensors are read-only downstream.
		outputs = append(outputs, &codec.Tensor{
			Name:     spec.Name,
			Datatype: src.Datatype,
			Shape:    src.Shape,
			Data:     src.Data,
		})
	}
	return outputs, nil
}

func (h *echoHandle) Close() error {
	h.closed.Store(true)
	return nil
}

func firstOfType(inputs []*codec.Tensor, dt codec.Datatype) *codec.Tensor {
	for _, t := range inputs {
		if t.Datatype == dt {
			return t
		}
	}
	return nil
}
