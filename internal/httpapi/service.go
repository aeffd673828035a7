package httpapi

import (
	"context"

	"inferd/internal/codec"
	"inferd/internal/dispatch"
	"inferd/internal/registry"
	"inferd/pkg/v2"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Live() bool
	Ready() bool
	ModelReady(name, version string) bool
	ServerMetadata() *v2.ServerMetadataResponse
	ModelMetadata(name, version string) (*v2.ModelMetadataResponse, error)
	Infer(ctx context.Context, req *v2.ModelInferRequest) (*v2.ModelInferResponse, error)
	RepositoryIndex(req *v2.RepositoryIndexRequest) *v2.RepositoryIndexResponse
	RepositoryLoad(ctx context.Context, req *v2.RepositoryModelLoadRequest) error
	RepositoryUnload(ctx context.Context, req *v2.RepositoryModelUnloadRequest) error
}

// ServerInfo names the serving engine on GET /v2.
type ServerInfo struct {
	Name       string
	Version    string
	Extensions []string
}

// Facade implements Service as pure glue over the registry and dispatcher.
type Facade struct {
	reg  *registry.Registry
	disp *dispatch.Dispatcher
	info ServerInfo
}

func NewFacade(reg *registry.Registry, disp *dispatch.Dispatcher, info ServerInfo) *Facade {
	return &Facade{reg: reg, disp: disp, info: info}
}

func (f *Facade) Live() bool  { return true }
func (f *Facade) Ready() bool { return f.reg.Ready() }

func (f *Facade) ModelReady(name, version string) bool {
	return f.reg.ModelReady(name, version)
}

func (f *Facade) ServerMetadata() *v2.ServerMetadataResponse {
	return &v2.ServerMetadataResponse{
		Name:       f.info.Name,
		Version:    f.info.Version,
		Extensions: f.info.Extensions,
	}
}

func (f *Facade) ModelMetadata(name, version string) (*v2.ModelMetadataResponse, error) {
	entry, err := f.reg.Get(name, version, true)
	if err != nil {
		return nil, err
	}
	return &v2.ModelMetadataResponse{
		Name:       entry.Key.Name,
		Versions:   f.reg.Versions(entry.Key.Name),
		Platform:   entry.Metadata.Platform,
		Inputs:     tensorMetadata(entry.Metadata.Inputs),
		Outputs:    tensorMetadata(entry.Metadata.Outputs),
		Parameters: codec.EncodeParameters(entry.Metadata.Defaults),
	}, nil
}

func (f *Facade) Infer(ctx context.Context, req *v2.ModelInferRequest) (*v2.ModelInferResponse, error) {
	return f.disp.Infer(ctx, req)
}

// RepositoryIndex reports every known model/version. This is a
// single-repository server, so the request's repository_name is not used for
// filtering.
func (f *Facade) RepositoryIndex(req *v2.RepositoryIndexRequest) *v2.RepositoryIndexResponse {
	rows := f.reg.Index(req.ReadyOnly)
	resp := &v2.RepositoryIndexResponse{Models: make([]v2.ModelIndex, 0, len(rows))}
	for _, row := range rows {
		resp.Models = append(resp.Models, v2.ModelIndex{
			Name:    row.Key.Name,
			Version: row.Key.Version,
			State:   string(row.State),
			Reason:  row.Reason,
		})
	}
	return resp
}

func (f *Facade) RepositoryLoad(ctx context.Context, req *v2.RepositoryModelLoadRequest) error {
	params, err := codec.DecodeParameters(req.Parameters)
	if err != nil {
		return err
	}
	return f.reg.Load(ctx, req.ModelName, versionParam(params), params)
}

func (f *Facade) RepositoryUnload(ctx context.Context, req *v2.RepositoryModelUnloadRequest) error {
	params, err := codec.DecodeParameters(req.Parameters)
	if err != nil {
		return err
	}
	return f.reg.Unload(ctx, req.ModelName, versionParam(params), params)
}

// versionParam lets repository requests target one version via a "version"
// string parameter; absent means server-selected.
func versionParam(params map[string]codec.ParamValue) string {
	if v, ok := params["version"]; ok && v.Kind == codec.KindString {
		return v.String
	}
	return ""
}

func tensorMetadata(specs []codec.TensorSpec) []v2.TensorMetadata {
	out := make([]v2.TensorMetadata, 0, len(specs))
	for _, s := range specs {
		out = append(out, v2.TensorMetadata{
			Name:     s.Name,
			Datatype: string(s.Datatype),
			Shape:    s.Shape,
		})
	}
	return out
}
