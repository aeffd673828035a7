package executor

import (
	"context"

	"inferd/internal/codec"
)

// Model describes everything an Executor needs to load one model version.
type Model struct {
	Name     string
	Version  string
	Platform string
	// URI points at the model artifact. Interpretation is backend-specific.
	URI      string
	Inputs   []codec.TensorSpec
	Outputs  []codec.TensorSpec
	Defaults map[string]codec.ParamValue
	// Params carries per-load control parameters from the repository API.
	Params map[string]codec.ParamValue
}

// Handle is a loaded model ready to serve. Implementations must return from
// Infer promptly when the context is canceled. Close releases the backend
// resources and is called exactly once, after the last in-flight Infer using
// the handle has returned (or the drain deadline expired).
type Handle interface {
	Infer(ctx context.Context, inputs []*codec.Tensor) ([]*codec.Tensor, error)
	Close() error
}

// Executor abstracts the execution backend that turns validated input tensors
// into output tensors. Concrete backends (ONNX runtimes, remote workers, ...)
// satisfy this interface.
type Executor interface {
	// Load prepares a serving handle for the given model. A failed Load must
	// leave no resources behind.
	Load(ctx context.Context, model Model) (Handle, error)
}
