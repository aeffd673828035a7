package v2

// RepositoryIndexRequest asks for the state of every model the server knows
// about, optionally restricted to ready models.
type RepositoryIndexRequest struct {
	RepositoryName string `json:"repository_name,omitempty"`
	ReadyOnly      bool   `json:"ready_only,omitempty"`
}

// ModelIndex is one row of the repository index. State is one of "UNKNOWN",
// "READY", "UNAVAILABLE", "LOADING", "UNLOADING".
type ModelIndex struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	State   string `json:"state"`
	Reason  string `json:"reason"`
}

// RepositoryIndexResponse lists the server's model/version pairs.
type RepositoryIndexResponse struct {
	Models []ModelIndex `json:"models"`
}

// RepositoryModelLoadRequest asks the server to load (or reload) a model.
type RepositoryModelLoadRequest struct {
	RepositoryName string                     `json:"repository_name,omitempty"`
	ModelName      string                     `json:"model_name"`
	Parameters     map[string]*InferParameter `json:"parameters,omitempty"`
}

// RepositoryModelLoadResponse is empty; failures come back as error statuses.
type RepositoryModelLoadResponse struct{}

// RepositoryModelUnloadRequest asks the server to unload a model.
type RepositoryModelUnloadRequest struct {
	RepositoryName string                     `json:"repository_name,omitempty"`
	ModelName      string                     `json:"model_name"`
	Parameters     map[string]*InferParameter `json:"parameters,omitempty"`
}

// RepositoryModelUnloadResponse is empty; failures come back as error statuses.
type RepositoryModelUnloadResponse struct{}
