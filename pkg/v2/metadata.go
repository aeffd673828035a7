package v2

// ServerMetadataResponse describes the serving engine itself.
type ServerMetadataResponse struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Extensions []string `json:"extensions"`
}

// TensorMetadata describes one declared input or output tensor of a model.
// A shape dimension of -1 marks a variable dimension whose concrete size is
// supplied per request.
type TensorMetadata struct {
	Name       string                     `json:"name"`
	Datatype   string                     `json:"datatype"`
	Shape      []int64                    `json:"shape"`
	Parameters map[string]*InferParameter `json:"parameters,omitempty"`
}

// ModelMetadataResponse describes a model's platform, versions and tensor
// signatures.
type ModelMetadataResponse struct {
	Name       string                     `json:"name"`
	Versions   []string                   `json:"versions,omitempty"`
	Platform   string                     `json:"platform"`
	Inputs     []TensorMetadata           `json:"inputs,omitempty"`
	Outputs    []TensorMetadata           `json:"outputs,omitempty"`
	Parameters map[string]*InferParameter `json:"parameters,omitempty"`
}
