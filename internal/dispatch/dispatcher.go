package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inferd/internal/codec"
	"inferd/internal/registry"
	"inferd/pkg/v2"
)

// Dispatcher validates inference requests against model metadata, invokes the
// execution backend, and assembles responses. It only sees committed registry
// snapshots; a reload committing mid-request never changes the handle a
// request is using.
type Dispatcher struct {
	reg *registry.Registry
	log zerolog.Logger
}

func New(reg *registry.Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, log: log}
}

// Infer executes one inference request. The first validation failure aborts
// the request; nothing is partially executed.
func (d *Dispatcher) Infer(ctx context.Context, req *v2.ModelInferRequest) (*v2.ModelInferResponse, error) {
	entry, err := d.reg.Get(req.ModelName, req.ModelVersion, true)
	if err != nil {
		return nil, err
	}
	key := entry.Key
	inferRequestsTotal.WithLabelValues(key.Name, key.Version).Inc()
	start := time.Now()
	resp, err := d.infer(ctx, entry, req)
	inferDuration.WithLabelValues(key.Name, key.Version).Observe(time.Since(start).Seconds())
	if err != nil {
		inferFailuresTotal.WithLabelValues(key.Name, key.Version).Inc()
		d.log.Debug().Str("model", key.Name).Str("version", key.Version).Err(err).Msg("infer failed")
	}
	return resp, err
}

func (d *Dispatcher) infer(ctx context.Context, entry *registry.Entry, req *v2.ModelInferRequest) (*v2.ModelInferResponse, error) {
	if entry.State != registry.StateReady {
		return nil, registry.ErrNotReady(entry.Key.Name, entry.Key.Version, entry.State)
	}
	handle, release, ok := entry.Acquire()
	if !ok {
		// The snapshot was READY when fetched but the handle drained away
		// (unload raced in); the caller may retry and re-resolve.
		return nil, registry.ErrUnavailable("model " + entry.Key.String() + " is shutting down")
	}
	defer release()

	if _, err := codec.DecodeParameters(req.Parameters); err != nil {
		return nil, err
	}
	inputs, err := decodeInputs(entry, req)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	results, err := handle.Infer(ctx, inputs)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrExecutorFailure(entry.Key.String(), err)
	}

	selected, err := selectOutputs(entry, req.Outputs, results)
	if err != nil {
		return nil, err
	}

	// Mirror the caller's encoding style. FP16/BF16 outputs force the raw
	// path; switch the whole response to raw then, so the raw list stays
	// aligned 1:1 with the typed output list.
	rawMode := len(req.RawInputContents) > 0
	if !rawMode {
		for _, t := range selected {
			if t.Datatype == codec.Fp16 || t.Datatype == codec.Bf16 {
				rawMode = true
				break
			}
		}
	}

	resp := &v2.ModelInferResponse{
		ModelName:    entry.Key.Name,
		ModelVersion: entry.Key.Version,
		ID:           id,
		Outputs:      make([]*v2.InferOutputTensor, 0, len(selected)),
	}
	for _, t := range selected {
		contents, raw, hasRaw, err := codec.EncodeTensor(t, rawMode)
		if err != nil {
			return nil, ErrExecutorFailure(entry.Key.String(), err)
		}
		resp.Outputs = append(resp.Outputs, &v2.InferOutputTensor{
			Name:     t.Name,
			Datatype: string(t.Datatype),
			Shape:    t.Shape,
			Contents: contents,
		})
		if hasRaw {
			resp.RawOutputContents = append(resp.RawOutputContents, raw)
		}
	}
	return resp, nil
}

// selectOutputs filters executor results to the outputs the caller asked for.
// An empty request list means all model-declared outputs.
func selectOutputs(entry *registry.Entry, requested []*v2.InferRequestedOutputTensor, results []*codec.Tensor) ([]*codec.Tensor, error) {
	if len(requested) == 0 {
		return results, nil
	}
	byName := make(map[string]*codec.Tensor, len(results))
	for _, t := range results {
		byName[t.Name] = t
	}
	out := make([]*codec.Tensor, 0, len(requested))
	for _, want := range requested {
		t, ok := byName[want.Name]
		if !ok {
			return nil, codec.ErrInvalidArgument(want.Name, "not an output of model "+entry.Key.String())
		}
		out = append(out, t)
	}
	return out, nil
}
