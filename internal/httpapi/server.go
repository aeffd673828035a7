package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/pkg/v2"
)

// NewMux builds the HTTP handler exposing the inference protocol endpoints.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/v2/health/live", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, v2.ServerLiveResponse{Live: svc.Live()}, svc.Live())
	})

	r.Get("/v2/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready := svc.Ready()
		writeProbe(w, v2.ServerReadyResponse{Ready: ready}, ready)
	})

	modelReady := func(w http.ResponseWriter, r *http.Request) {
		ready := svc.ModelReady(chi.URLParam(r, "model"), chi.URLParam(r, "version"))
		writeProbe(w, v2.ModelReadyResponse{Ready: ready}, ready)
	}
	r.Get("/v2/models/{model}/ready", modelReady)
	r.Get("/v2/models/{model}/versions/{version}/ready", modelReady)

	r.Get("/v2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.ServerMetadata())
	})

	modelMetadata := func(w http.ResponseWriter, r *http.Request) {
		md, err := svc.ModelMetadata(chi.URLParam(r, "model"), chi.URLParam(r, "version"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, md)
	}
	r.Get("/v2/models/{model}", modelMetadata)
	r.Get("/v2/models/{model}/versions/{version}", modelMetadata)

	infer := func(w http.ResponseWriter, r *http.Request) {
		var req v2.ModelInferRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.ModelName = chi.URLParam(r, "model")
		req.ModelVersion = chi.URLParam(r, "version")

		lvl := requestLogLevel(r)
		start := time.Now()
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Infer(ctx, &req)
		if err != nil {
			// Client disconnected or server shutting down; nothing to write.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := statusFor(err)
			if zlog != nil && (lvl >= LevelError || (lvl >= LevelInfo && status < 500)) {
				logInferEnd(r, req.ModelName, status, start, err)
			}
			writeJSONError(w, status, err.Error())
			return
		}
		if zlog != nil && lvl >= LevelInfo {
			logInferEnd(r, req.ModelName, http.StatusOK, start, nil)
		}
		writeJSON(w, resp)
	}
	r.Post("/v2/models/{model}/infer", infer)
	r.Post("/v2/models/{model}/versions/{version}/infer", infer)

	r.Post("/v2/repository/index", func(w http.ResponseWriter, r *http.Request) {
		var req v2.RepositoryIndexRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}
		writeJSON(w, svc.RepositoryIndex(&req))
	})

	r.Post("/v2/repository/models/{model}/load", func(w http.ResponseWriter, r *http.Request) {
		var req v2.RepositoryModelLoadRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}
		req.ModelName = chi.URLParam(r, "model")
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.RepositoryLoad(ctx, &req); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, v2.RepositoryModelLoadResponse{})
	})

	r.Post("/v2/repository/models/{model}/unload", func(w http.ResponseWriter, r *http.Request) {
		var req v2.RepositoryModelUnloadRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}
		req.ModelName = chi.URLParam(r, "model")
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.RepositoryUnload(ctx, &req); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, v2.RepositoryModelUnloadResponse{})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeProbe writes a readiness-style payload: 200 when ok, 503 otherwise, so
// both JSON clients and plain HTTP probes can use the endpoint.
func writeProbe(w http.ResponseWriter, body any, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// decodeBody enforces JSON content type and the body size cap, then decodes
// into v. Returns false after writing the error response.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints where an empty body is fine.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
	return false
}

func logInferEnd(r *http.Request, model string, status int, start time.Time, err error) {
	z := zlog.Info().Str("path", r.URL.Path).Str("model", model).
		Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("infer end")
}
