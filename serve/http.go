package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/health"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

// StatusMessage is the payload of GET /.
const StatusMessage = "Sarcastic MCP online. Unfortunately. v2"

// Paths of the HTTP surface.
const (
	PathTools      = "/tools"
	PathCall       = "/tools/call"
	PathSSE        = "/sse"
	PathMessage    = "/message"
	PathHealth     = "/healthz"
	PathDiscovery  = "/.well-known/mcp"
	maxRequestBody = 1 << 20
)

// newHTTPHandler returns the HTTP surface over d: the JSON tool endpoints,
// the MCP SSE endpoints, health and discovery.
func newHTTPHandler(d *dispatch.Dispatcher, cfg *Config) (http.Handler, *server.SSEServer) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	var sseOpts []server.SSEOption
	if cfg.BaseURL != "" {
		sseOpts = append(sseOpts, server.WithBaseURL(cfg.BaseURL))
	}
	sse := server.NewSSEServer(NewMCPServer(d, cfg.Name, cfg.Version, logger), sseOpts...)

	auth := authWarning(logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": StatusMessage})
	})

	mux.HandleFunc("GET "+PathHealth, func(w http.ResponseWriter, r *http.Request) {
		status := health.Run(r.Context(), cfg.Checks...)
		writeJSON(w, status.HTTPCode(), status)
	})

	mux.HandleFunc("GET "+PathDiscovery, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    cfg.Name,
			"version": cfg.Version,
			"profile": cfg.Profile,
			"tools":   d.Registry().Names(),
			"endpoints": map[string]any{
				"tools":   PathTools,
				"call":    PathCall,
				"sse":     PathSSE,
				"message": PathMessage,
			},
		})
	})

	mux.Handle("GET "+PathTools, auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.ListTools())
	})))

	mux.Handle("POST "+PathCall, auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.Request
		if err := decodeRequest(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, toolerr.ErrCodeMalformedRequest, err.Error(), false)
			return
		}

		res, err := d.Call(r.Context(), req)
		if err != nil {
			status := statusForError(err)
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(r.Context(), "tool call failed", "tool", req.Name, "error", err)
			}
			code := toolerr.CodeOf(err)
			if code == "" {
				code = toolerr.ErrCodeExecutionFailed
			}
			writeError(w, status, code, err.Error(), toolerr.IsRetryable(err))
			return
		}
		writeJSON(w, http.StatusOK, res)
	})))

	mux.Handle(PathSSE, auth(sse))
	mux.Handle(PathMessage, auth(sse))

	var handler http.Handler = cors.AllowAll().Handler(mux)
	if cfg.TracerProvider != nil || cfg.MeterProvider != nil {
		var otelOpts []otelhttp.Option
		if cfg.TracerProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
		}
		if cfg.MeterProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithMeterProvider(cfg.MeterProvider))
		}
		handler = otelhttp.NewHandler(handler, "sarcasm.http", otelOpts...)
	}

	return handler, sse
}

// authWarning logs requests that carry no Authorization header. It never
// rejects a request.
func authWarning(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				logger.WarnContext(r.Context(), "request without authorization header",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, req *dispatch.Request) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func statusForError(err error) int {
	switch toolerr.CodeOf(err) {
	case toolerr.ErrCodeInvalidInput:
		return http.StatusUnprocessableEntity
	case toolerr.ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case toolerr.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case toolerr.ErrCodeDependencyMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, retryable bool) {
	writeJSON(w, status, map[string]any{
		"error":     message,
		"code":      code,
		"retryable": retryable,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
