// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/vectorium"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
	"github.com/poiesic/vectorium/ingestion"
)

// Handlers holds the HTTP handlers over the service facade.
type Handlers struct {
	service *vectorium.Service
	logger  *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(service *vectorium.Service) *Handlers {
	return &Handlers{
		service: service,
		logger:  slog.Default().With("component", "api"),
	}
}

type upsertRequest struct {
	Namespace string              `json:"namespace"`
	Records   []core.SourceRecord `json:"records"`
}

type ensureNamespaceRequest struct {
	Dimension int `json:"dimension"`
}

type searchResponse struct {
	Matches []core.SearchMatch `json:"matches"`
}

type chunkListResponse struct {
	OriginalID string             `json:"original_id"`
	Chunks     []core.SearchMatch `json:"chunks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateIndex provisions an index and waits until it is ready.
func (h *Handlers) CreateIndex(w http.ResponseWriter, r *http.Request) {
	var config core.IndexConfig
	if !decodeBody(w, r, &config) {
		return
	}

	provider := chi.URLParam(r, "provider")
	if err := h.service.CreateIndex(r.Context(), provider, &config); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"index_name": config.IndexName,
		"status":     "ready",
	})
}

// Upsert ingests source records into an index namespace.
func (h *Handlers) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Namespace == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: core.ErrEmptyNamespace.Error()})
		return
	}

	provider := chi.URLParam(r, "provider")
	indexName := chi.URLParam(r, "index")

	report, err := h.service.UpsertData(r.Context(), provider, indexName, req.Namespace, req.Records)
	if err != nil {
		// A partial failure still carries a report; surface both so the
		// caller can retry just the failed groups.
		if errors.Is(err, ingestion.ErrPartialIngest) && report != nil {
			writeJSON(w, http.StatusMultiStatus, report)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Search answers a query request against an index.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req core.QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	provider := chi.URLParam(r, "provider")
	indexName := chi.URLParam(r, "index")

	matches, err := h.service.Search(r.Context(), provider, indexName, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []core.SearchMatch{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Matches: matches})
}

// EnsureNamespace forces a namespace into existence.
func (h *Handlers) EnsureNamespace(w http.ResponseWriter, r *http.Request) {
	var req ensureNamespaceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	provider := chi.URLParam(r, "provider")
	indexName := chi.URLParam(r, "index")
	namespace := chi.URLParam(r, "namespace")

	err := h.service.EnsureNamespaceExists(r.Context(), provider, indexName, namespace, req.Dimension)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"namespace": namespace, "status": "ready"})
}

// ChunkContext resolves one chunk with its linked neighbors.
func (h *Handlers) ChunkContext(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	indexName := chi.URLParam(r, "index")
	chunkID := chi.URLParam(r, "chunkID")
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: core.ErrEmptyNamespace.Error()})
		return
	}

	result, err := h.service.GetChunkWithContext(r.Context(), provider, indexName, namespace, chunkID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !result.Found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "chunk not found"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DocumentChunks lists a document's chunks in positional order.
func (h *Handlers) DocumentChunks(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	indexName := chi.URLParam(r, "index")
	originalID := chi.URLParam(r, "originalID")
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: core.ErrEmptyNamespace.Error()})
		return
	}

	matches, err := h.service.GetDocumentChunks(r.Context(), provider, indexName, namespace, originalID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []core.SearchMatch{}
	}
	writeJSON(w, http.StatusOK, chunkListResponse{OriginalID: originalID, Chunks: matches})
}

// writeError maps domain errors to status codes. Validation failures and
// unknown providers are the caller's fault; everything else is a 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, index.ErrUnknownProvider),
		errors.Is(err, core.ErrInvalidIndexConfig),
		errors.Is(err, core.ErrInvalidRecord),
		errors.Is(err, core.ErrInvalidQuery),
		errors.Is(err, core.ErrEmptyNamespace),
		errors.Is(err, core.ErrInvalidDimension),
		errors.Is(err, ingestion.ErrNoRecords):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
