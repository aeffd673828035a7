package v2

// ServerLiveResponse reports whether the server process is up.
type ServerLiveResponse struct {
	Live bool `json:"live"`
}

// ServerReadyResponse reports whether every registered model is ready to serve.
type ServerReadyResponse struct {
	Ready bool `json:"ready"`
}

// ModelReadyResponse reports readiness of a single model/version.
type ModelReadyResponse struct {
	Ready bool `json:"ready"`
}
