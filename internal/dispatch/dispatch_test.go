package dispatch

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"inferd/internal/codec"
	"inferd/internal/executor"
	"inferd/internal/registry"
	"inferd/pkg/v2"
)

type mapSource map[registry.ModelKey]executor.Model

func (s mapSource) Lookup(name, version string) (executor.Model, error) {
	if version != "" {
		if m, ok := s[registry.ModelKey{Name: name, Version: version}]; ok {
			return m, nil
		}
		return executor.Model{}, registry.ErrNotFound(name, version)
	}
	best := ""
	for k := range s {
		if k.Name == name && (best == "" || registry.CompareVersions(k.Version, best) > 0) {
			best = k.Version
		}
	}
	if best == "" {
		return executor.Model{}, registry.ErrNotFound(name, version)
	}
	return s[registry.ModelKey{Name: name, Version: best}], nil
}

func newDispatcher(t *testing.T, exec executor.Executor, models ...executor.Model) *Dispatcher {
	t.Helper()
	src := make(mapSource, len(models))
	for _, m := range models {
		src[registry.ModelKey{Name: m.Name, Version: m.Version}] = m
	}
	reg := registry.New(registry.Config{Executor: exec, Source: src})
	for _, m := range models {
		if err := reg.Load(context.Background(), m.Name, m.Version, nil); err != nil {
			t.Fatalf("Load %s/%s: %v", m.Name, m.Version, err)
		}
	}
	return New(reg, zerolog.Nop())
}

func echoModel() executor.Model {
	return executor.Model{
		Name:    "m",
		Version: "1",
		Inputs: []codec.TensorSpec{
			{Name: "a", Datatype: codec.Fp32, Shape: []int64{-1}},
			{Name: "b", Datatype: codec.Int32, Shape: []int64{1}},
		},
		Outputs: []codec.TensorSpec{
			{Name: "c", Datatype: codec.Fp32, Shape: []int64{-1}},
		},
	}
}

func fp32Raw(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func int32Raw(vals ...int32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func TestInferTypedContents(t *testing.T) {
	d := newDispatcher(t, executor.NewEcho(), echoModel())

	resp, err := d.Infer(context.Background(), &v2.ModelInferRequest{
		ModelName:    "m",
		ModelVersion: "1",
		Inputs: []*v2.InferInputTensor{
			{Name: "a", Datatype: "FP32", Shape: []int64{4},
				Contents: &v2.InferTensorContents{Fp32Contents: []float32{1, 2, 3, 4}}},
			{Name: "b", Datatype: "INT32", Shape: []int64{1},
				Contents: &v2.InferTensorContents{IntContents: []int32{7}}},
		},
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if resp.ModelName != "m" || resp.ModelVersion != "1" {
		t.Fatalf("response identifies %s/%s", resp.ModelName, resp.ModelVersion)
	}
	if resp.ID == "" {
		t.Fatalf("response has no generated id")
	}
	if len(resp.Outputs) != 1 {
		t.Fatalf("got %d outputs, want 1", len(resp.Outputs))
	}
	out := resp.Outputs[0]
	if out.Name != "c" || out.Datatype != "FP32" {
		t.Fatalf("output = %s %s", out.Name, out.Datatype)
	}
	if diff := cmp.Diff([]int64{4}, out.Shape); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, 4}, out.Contents.Fp32Contents); diff != "" {
		t.Fatalf("contents mismatch (-want +got):\n%s", diff)
	}
	if len(resp.RawOutputContents) != 0 {
		t.Fatalf("typed request produced raw outputs")
	}
}

func TestInferMirrorsRawEncoding(t *testing.T) {
	d := newDispatcher(t, executor.NewEcho(), echoModel())

	aRaw := fp32Raw(1.5, -2.5)
	resp, err := d.Infer(context.Background(), &v2.ModelInferRequest{
		ModelName: "m",
		ID:        "req-7",
		Inputs: []*v2.InferInputTensor{
			{Name: "a", Datatype: "FP32", Shape: []int64{2}},
			{Name: "b", Datatype: "INT32", Shape: []int64{1}},
		},
		RawInputContents: [][]byte{aRaw, int32Raw(3)},
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if resp.ID != "req-7" {
		t.Fatalf("caller id not preserved: %q", resp.ID)
	}
	if len(resp.RawOutputContents) != 1 {
		t.Fatalf("raw request produced %d raw outputs, want 1", len(resp.RawOutputContents))
	}
	if resp.Outputs[0].Contents != nil {
		t.Fatalf("raw response also populated typed contents")
	}
	if diff := cmp.Diff(aRaw, resp.RawOutputContents[0]); diff != "" {
		t.Fatalf("raw output mismatch (-want +got):\n%s", diff)
	}
}

func TestInferShapeValidation(t *testing.T) {
	model := executor.Model{
		Name:    "grid",
		Version: "1",
		Inputs:  []codec.TensorSpec{{Name: "x", Datatype: codec.Fp32, Shape: []int64{-1, 3}}},
		Outputs: []codec.TensorSpec{{Name: "y", Datatype: codec.Fp32, Shape: []int64{-1, 3}}},
	}
	d := newDispatcher(t, executor.NewEcho(), model)

	ok := &v2.ModelInferRequest{
		ModelName: "grid",
		Inputs: []*v2.InferInputTensor{
			{Name: "x", Datatype: "FP32", Shape: []int64{2, 3},
				Contents: &v2.InferTensorContents{Fp32Contents: []float32{1, 2, 3, 4, 5, 6}}},
		},
	}
	if _, err := d.Infer(context.Background(), ok); err != nil {
		t.Fatalf("variable dimension rejected a valid shape: %v", err)
	}

	bad := &v2.ModelInferRequest{
		ModelName: "grid",
		Inputs: []*v2.InferInputTensor{
			{Name: "x", Datatype: "FP32", Shape: []int64{2, 4},
				Contents: &v2.InferTensorContents{Fp32Contents: []float32{1, 2, 3, 4, 5, 6, 7, 8}}},
		},
	}
	_, err := d.Infer(context.Background(), bad)
	if !codec.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), "x") {
		t.Fatalf("shape error does not name the tensor: %v", err)
	}
}

func TestInferInputValidation(t *testing.T) {
	d := newDispatcher(t, executor.NewEcho(), echoModel())

	aIn := func() *v2.InferInputTensor {
		return &v2.InferInputTensor{Name: "a", Datatype: "FP32", Shape: []int64{1},
			Contents: &v2.InferTensorContents{Fp32Contents: []float32{1}}}
	}
	bIn := func() *v2.InferInputTensor {
		return &v2.InferInputTensor{Name: "b", Datatype: "INT32", Shape: []int64{1},
			Contents: &v2.InferTensorContents{IntContents: []int32{1}}}
	}

	cases := []struct {
		name string
		req  *v2.ModelInferRequest
	}{
		{"missing input", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{aIn()}}},
		{"unknown input", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{aIn(), bIn(),
				{Name: "z", Datatype: "FP32", Shape: []int64{1}, Contents: &v2.InferTensorContents{Fp32Contents: []float32{0}}}}}},
		{"duplicate input", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{aIn(), aIn(), bIn()}}},
		{"unnamed input", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{aIn(), {Datatype: "INT32", Shape: []int64{1}}}}},
		{"wrong datatype", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{aIn(),
				{Name: "b", Datatype: "INT64", Shape: []int64{1}, Contents: &v2.InferTensorContents{Int64Contents: []int64{1}}}}}},
		{"raw count mismatch", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{
				{Name: "a", Datatype: "FP32", Shape: []int64{1}},
				{Name: "b", Datatype: "INT32", Shape: []int64{1}}},
			RawInputContents: [][]byte{fp32Raw(1)}}},
		{"raw length mismatch", &v2.ModelInferRequest{ModelName: "m",
			Inputs: []*v2.InferInputTensor{
				{Name: "a", Datatype: "FP32", Shape: []int64{4}},
				{Name: "b", Datatype: "INT32", Shape: []int64{1}}},
			RawInputContents: [][]byte{fp32Raw(1, 2, 3), int32Raw(1)}}},
		{"unknown requested output", &v2.ModelInferRequest{ModelName: "m",
			Inputs:  []*v2.InferInputTensor{aIn(), bIn()},
			Outputs: []*v2.InferRequestedOutputTensor{{Name: "nope"}}}},
		{"bad request parameter", &v2.ModelInferRequest{ModelName: "m",
			Parameters: map[string]*v2.InferParameter{"p": {}},
			Inputs:     []*v2.InferInputTensor{aIn(), bIn()}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Infer(context.Background(), tc.req)
			if !codec.IsInvalidArgument(err) {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestInferFillsDefaults(t *testing.T) {
	model := echoModel()
	model.Defaults = map[string]codec.ParamValue{
		"b": codec.BytesValue(int32Raw(42)),
	}
	d := newDispatcher(t, executor.NewEcho(), model)

	resp, err := d.Infer(context.Background(), &v2.ModelInferRequest{
		ModelName: "m",
		Inputs: []*v2.InferInputTensor{
			{Name: "a", Datatype: "FP32", Shape: []int64{2},
				Contents: &v2.InferTensorContents{Fp32Contents: []float32{1, 2}}},
		},
	})
	if err != nil {
		t.Fatalf("Infer with defaulted input: %v", err)
	}
	if len(resp.Outputs) != 1 || resp.Outputs[0].Name != "c" {
		t.Fatalf("unexpected outputs: %+v", resp.Outputs)
	}
}

func TestInferRequestedOutputFilter(t *testing.T) {
	model := echoModel()
	model.Outputs = []codec.TensorSpec{
		{Name: "c", Datatype: codec.Fp32, Shape: []int64{-1}},
		{Name: "d", Datatype: codec.Int32, Shape: []int64{1}},
	}
	d := newDispatcher(t, executor.NewEcho(), model)

	req := func(outputs ...*v2.InferRequestedOutputTensor) *v2.ModelInferRequest {
		return &v2.ModelInferRequest{
			ModelName: "m",
			Inputs: []*v2.InferInputTensor{
				{Name: "a", Datatype: "FP32", Shape: []int64{1},
					Contents: &v2.InferTensorContents{Fp32Contents: []float32{9}}},
				{Name: "b", Datatype: "INT32", Shape: []int64{1},
					Contents: &v2.InferTensorContents{IntContents: []int32{5}}},
			},
			Outputs: outputs,
		}
	}

	resp, err := d.Infer(context.Background(), req())
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(resp.Outputs) != 2 {
		t.Fatalf("empty filter returned %d outputs, want all 2", len(resp.Outputs))
	}

	resp, err = d.Infer(context.Background(), req(&v2.InferRequestedOutputTensor{Name: "d"}))
	if err != nil {
		t.Fatalf("Infer with filter: %v", err)
	}
	if len(resp.Outputs) != 1 || resp.Outputs[0].Name != "d" {
		t.Fatalf("filtered outputs = %+v", resp.Outputs)
	}
	if diff := cmp.Diff([]int32{5}, resp.Outputs[0].Contents.IntContents); diff != "" {
		t.Fatalf("filtered contents mismatch (-want +got):\n%s", diff)
	}
}

func TestInferUnknownModel(t *testing.T) {
	d := newDispatcher(t, executor.NewEcho(), echoModel())
	_, err := d.Infer(context.Background(), &v2.ModelInferRequest{ModelName: "ghost"})
	if !registry.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

type failingExecutor struct{ err error }

func (f failingExecutor) Load(ctx context.Context, m executor.Model) (executor.Handle, error) {
	return failingHandle{err: f.err}, nil
}

type failingHandle struct{ err error }

func (h failingHandle) Infer(ctx context.Context, inputs []*codec.Tensor) ([]*codec.Tensor, error) {
	return nil, h.err
}

func (h failingHandle) Close() error { return nil }

func TestInferExecutorFailure(t *testing.T) {
	d := newDispatcher(t, failingExecutor{err: errors.New("kernel panic in backend")}, echoModel())

	_, err := d.Infer(context.Background(), &v2.ModelInferRequest{
		ModelName: "m",
		Inputs: []*v2.InferInputTensor{
			{Name: "a", Datatype: "FP32", Shape: []int64{1},
				Contents: &v2.InferTensorContents{Fp32Contents: []float32{1}}},
			{Name: "b", Datatype: "INT32", Shape: []int64{1},
				Contents: &v2.InferTensorContents{IntContents: []int32{1}}},
		},
	})
	if !IsExecutorFailure(err) {
		t.Fatalf("expected ExecutorFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "m/1") {
		t.Fatalf("error does not name the model: %v", err)
	}
}

func TestInferCanceledContext(t *testing.T) {
	d := newDispatcher(t, executor.NewEcho(), echoModel())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Infer(ctx, &v2.ModelInferRequest{
		ModelName: "m",
		Inputs: []*v2.InferInputTensor{
			{Name: "a", Datatype: "FP32", Shape: []int64{1},
				Contents: &v2.InferTensorContents{Fp32Contents: []float32{1}}},
			{Name: "b", Datatype: "INT32", Shape: []int64{1},
				Contents: &v2.InferTensorContents{IntContents: []int32{1}}},
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
