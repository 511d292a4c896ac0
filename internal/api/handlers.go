package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/quill/internal/llm"
	"github.com/hyperengineering/quill/internal/moderation"
	"github.com/hyperengineering/quill/internal/registry"
	"github.com/hyperengineering/quill/internal/store"
	"github.com/hyperengineering/quill/internal/title"
	"github.com/hyperengineering/quill/internal/types"
	"github.com/hyperengineering/quill/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	store        store.Store
	resolver     *llm.Resolver
	titles       *title.Generator
	moderator    *moderation.Moderator
	registryPath string
	apiKey       string
	version      string
}

// NewHandler creates a new Handler. The title generator is built on the same
// resolver as the moderator.
func NewHandler(s store.Store, r *llm.Resolver, m *moderation.Moderator, registryPath, apiKey, version string) *Handler {
	return &Handler{
		store:        s,
		resolver:     r,
		titles:       title.NewGenerator(r),
		moderator:    m,
		registryPath: registryPath,
		apiKey:       apiKey,
		version:      version,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		slog.Error("health stats failed", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Model:         h.resolver.ModelName(),
		LLMConfigured: h.resolver.Configured(),
		MessageCount:  stats.MessageCount,
		LastMessage:   stats.LastMessage,
	})
}

// GenerateTitle handles POST /api/v1/titles. It always answers 200 with
// either a generated title or the fallback.
func (h *Handler) GenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req types.TitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateTitleRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	writeJSON(w, http.StatusOK, types.TitleResponse{
		Title: h.titles.Generate(r.Context(), req.Content),
	})
}

// Moderate handles POST /api/v1/moderation and returns the decision without
// recording anything.
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVisitorRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.moderator.Moderate(r.Context(), req.Message, req.Name))
}

// PostVisitorMessage handles POST /api/v1/visitors. Every decision is
// recorded; allowed messages answer 201, rejected ones 403.
func (h *Handler) PostVisitorMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVisitorRequest(w, r)
	if !ok {
		return
	}

	result := h.moderator.Moderate(r.Context(), req.Message, req.Name)

	msg, err := h.store.RecordMessage(r.Context(), types.NewVisitorMessage{
		Name:      req.Name,
		Message:   req.Message,
		Allowed:   result.Allowed,
		Reason:    string(result.Reason),
		Sentiment: string(result.Sentiment),
	})
	if err != nil {
		slog.Error("record visitor message failed", "error", err)
		MapStoreError(w, r, err)
		return
	}

	slog.Info("visitor message moderated",
		"component", "api",
		"id", msg.ID,
		"allowed", result.Allowed,
		"reason", result.Reason,
	)

	if !result.Allowed {
		WriteProblemRejected(w, r, result)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// ListVisitorMessages handles GET /api/v1/visitors
func (h *Handler) ListVisitorMessages(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > store.MaxListLimit {
			WriteProblem(w, r, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", store.MaxListLimit))
			return
		}
		opts.Limit = limit
	}

	if v := r.URL.Query().Get("include_rejected"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "include_rejected must be a boolean")
			return
		}
		opts.IncludeRejected = include
	}

	messages, err := h.store.ListMessages(r.Context(), opts)
	if err != nil {
		slog.Error("list visitor messages failed", "error", err)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.VisitorListResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// GetVisitorMessage handles GET /api/v1/visitors/{id}
func (h *Handler) GetVisitorMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if verr := validation.ValidateULID("id", id); verr != nil {
		WriteProblemWithErrors(w, r, "Invalid message ID", []validation.ValidationError{*verr})
		return
	}

	msg, err := h.store.GetMessage(r.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("get visitor message failed", "error", err, "id", id)
		}
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// GetRegistry handles GET /api/v1/registry
func (h *Handler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadRegistry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// GetRegistryEntry handles GET /api/v1/registry/{hash}
func (h *Handler) GetRegistryEntry(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if !isContentHash(hash) {
		WriteProblem(w, r, http.StatusBadRequest, "hash must be a 64-character hex SHA-256 digest")
		return
	}

	reg, ok := h.loadRegistry(w, r)
	if !ok {
		return
	}

	entry, err := reg.Lookup(hash)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) loadRegistry(w http.ResponseWriter, r *http.Request) (*registry.Registry, bool) {
	reg, err := registry.Load(h.registryPath)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			WriteProblem(w, r, http.StatusNotFound, "Registry has not been built")
			return nil, false
		}
		slog.Error("load registry failed", "error", err, "path", h.registryPath)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	return reg, true
}

func (h *Handler) decodeVisitorRequest(w http.ResponseWriter, r *http.Request) (types.VisitorRequest, bool) {
	var req types.VisitorRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if errs := validation.ValidateVisitorRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return req, false
	}
	return req, true
}

// decodeJSON decodes the request body into v, writing a 413 problem for an
// oversized body and a 400 for anything else that fails to parse.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteProblem(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
	return false
}

func isContentHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
