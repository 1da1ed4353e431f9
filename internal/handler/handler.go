package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"archsketch/internal/domain"
	"archsketch/internal/logs"
	"archsketch/internal/pool"
	"archsketch/internal/render"
	"archsketch/internal/repository"
	"archsketch/internal/service"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// HealthProbe reports whether a dependency is usable
type HealthProbe func() bool

// DiagramHandler handles diagram API requests
type DiagramHandler struct {
	svc       *service.DiagramService
	imagesDir string
	probes    map[string]HealthProbe
}

// NewDiagramHandler creates a new diagram handler serving images from imagesDir
func NewDiagramHandler(svc *service.DiagramService, imagesDir string) *DiagramHandler {
	return &DiagramHandler{
		svc:       svc,
		imagesDir: imagesDir,
		probes:    make(map[string]HealthProbe),
	}
}

// SetHealthProbe registers a component reported by the health endpoint
func (h *DiagramHandler) SetHealthProbe(name string, probe HealthProbe) {
	h.probes[name] = probe
}

// Register adds the API routes to mux
func (h *DiagramHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate-diagram", h.GenerateDiagram)
	mux.HandleFunc("POST /api/assistant-chat", h.AssistantChat)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/supported-components", h.SupportedComponents)
	mux.HandleFunc("GET /api/images/{filename}", h.GetImage)
}

// ErrorResponse is the body of a failed non-generate request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GenerateRequest is the body of POST /api/generate-diagram
type GenerateRequest struct {
	Description string `json:"description"`
}

// GenerateResponse is returned by POST /api/generate-diagram
type GenerateResponse struct {
	Success       bool                  `json:"success"`
	ImageURL      string                `json:"image_url,omitempty"`
	Specification *domain.Specification `json:"specification,omitempty"`
	Message       string                `json:"message"`
	ErrorKind     string                `json:"error_kind,omitempty"`
	Violations    []domain.Violation    `json:"violations,omitempty"`
}

// ChatRequest is the body of POST /api/assistant-chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /api/assistant-chat
type ChatResponse struct {
	Type               string   `json:"type"`
	Response           string   `json:"response"`
	SupportedNodeTypes []string `json:"supported_node_types"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status     string          `json:"status"`
	Pool       pool.Stats      `json:"pool"`
	Components map[string]bool `json:"components,omitempty"`
}

// ComponentsResponse is returned by GET /api/supported-components
type ComponentsResponse struct {
	SupportedComponents map[string]string `json:"supported_components"`
	TotalCount          int               `json:"total_count"`
}

// GenerateDiagram turns a description into a rendered diagram
func (h *DiagramHandler) GenerateDiagram(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeJSON(w, GenerateResponse{
			Message:   "Invalid request body: " + err.Error(),
			ErrorKind: service.KindInput,
		}, http.StatusBadRequest)
		return
	}

	result, err := h.svc.Generate(r.Context(), req.Description)
	if err != nil {
		kind := service.ErrorKind(err)
		resp := GenerateResponse{
			Message:   failureMessage(kind, err),
			ErrorKind: kind,
		}
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			resp.Violations = ve.Violations
		}
		if kind == service.KindPoolTimeout {
			w.Header().Set("Retry-After", "5")
		}
		h.writeJSON(w, resp, statusFor(kind))
		return
	}

	h.writeJSON(w, GenerateResponse{
		Success:       true,
		ImageURL:      result.ImageURL,
		Specification: result.Specification,
		Message:       "Diagram generated successfully",
	}, http.StatusOK)
}

// AssistantChat answers a free-form message about diagramming
func (h *DiagramHandler) AssistantChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := h.svc.Chat(r.Context(), req.Message)
	if err != nil {
		kind := service.ErrorKind(err)
		h.writeError(w, "Assistant chat failed", err.Error(), statusFor(kind))
		return
	}

	h.writeJSON(w, ChatResponse{
		Type:               "text",
		Response:           reply.Text,
		SupportedNodeTypes: reply.SupportedTypes,
	}, http.StatusOK)
}

// Health reports liveness and pool occupancy
func (h *DiagramHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Pool:   h.svc.PoolStats(),
	}
	if len(h.probes) > 0 {
		resp.Components = make(map[string]bool, len(h.probes))
		for name, probe := range h.probes {
			resp.Components[name] = probe()
		}
	}
	h.writeJSON(w, resp, http.StatusOK)
}

// SupportedComponents lists every node type with its description
func (h *DiagramHandler) SupportedComponents(w http.ResponseWriter, r *http.Request) {
	components := h.svc.SupportedComponents()
	h.writeJSON(w, ComponentsResponse{
		SupportedComponents: components,
		TotalCount:          len(components),
	}, http.StatusOK)
}

// GetImage serves a rendered artifact. Names are checked against the
// artifact naming scheme before touching the filesystem.
func (h *DiagramHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if !render.ValidName(name) {
		h.writeError(w, "Image not found", "", http.StatusNotFound)
		return
	}

	path := filepath.Join(h.imagesDir, name)
	artifact, err := h.svc.Artifact(r.Context(), name)
	switch {
	case err == nil:
		path = artifact.Path
		w.Header().Set("ETag", strconv.Quote(artifact.Fingerprint))
	case errors.Is(err, repository.ErrNotFound):
		// Files from before a restart are still served, without an ETag
	default:
		logs.From(r.Context()).WarnContext(r.Context(), "artifact lookup failed", "name", name, "error", err)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logs.From(r.Context()).WarnContext(r.Context(), "stat artifact", "name", name, "error", err)
		}
		h.writeError(w, "Image not found", "", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

// statusFor maps a failure kind to an HTTP status
func statusFor(kind string) int {
	switch kind {
	case service.KindInput:
		return http.StatusBadRequest
	case service.KindValidation:
		return http.StatusUnprocessableEntity
	case service.KindLLM, service.KindParse:
		return http.StatusBadGateway
	case service.KindPoolTimeout:
		return http.StatusServiceUnavailable
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// failureMessage is the human-readable message for a failed generation
func failureMessage(kind string, err error) string {
	switch kind {
	case service.KindPoolTimeout:
		return "Service is busy, please retry shortly: " + err.Error()
	case service.KindTimeout:
		return "Diagram generation timed out: " + err.Error()
	case service.KindValidation:
		return "The generated specification was rejected: " + err.Error()
	}
	return "Failed to generate diagram: " + err.Error()
}

// decodeBody reads a single JSON object from the request body
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

func (h *DiagramHandler) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DiagramHandler) writeError(w http.ResponseWriter, message, details string, status int) {
	h.writeJSON(w, ErrorResponse{
		Error:   message,
		Details: strings.TrimSpace(details),
	}, status)
}
