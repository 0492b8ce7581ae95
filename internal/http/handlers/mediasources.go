package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/mediasource"
	"github.com/fudoniten/pseudovision/internal/model"
)

// MediaSourceHandler handles Media Source, Library, and sync-trigger requests.
type MediaSourceHandler struct {
	service *mediasource.Service
	logger  *zap.Logger
}

// NewMediaSourceHandler creates a MediaSourceHandler.
func NewMediaSourceHandler(service *mediasource.Service, logger *zap.Logger) *MediaSourceHandler {
	return &MediaSourceHandler{service: service, logger: logger}
}

func (h *MediaSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.ListSources(r.Context())
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list media sources")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list media sources")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sources)
}

func (h *MediaSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	src, err := h.service.GetSource(r.Context(), id)
	if err != nil {
		if errors.Is(err, mediasource.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "media source not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to get media source", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to get media source")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, src)
}

func (h *MediaSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var src model.MediaSource
	if err := httputil.DecodeJSON(r, &src); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	created, err := h.service.CreateSource(r.Context(), src)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create media source")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create media source")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *MediaSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.DeleteSource(r.Context(), id); err != nil {
		if errors.Is(err, mediasource.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "media source not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete media source", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete media source")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaSourceHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	libs, err := h.service.Libraries(r.Context(), sourceID)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list libraries", zap.Int64("media_source_id", sourceID))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list libraries")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, libs)
}

func (h *MediaSourceHandler) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var lib model.Library
	if err := httputil.DecodeJSON(r, &lib); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	lib.MediaSourceID = sourceID
	created, err := h.service.CreateLibrary(r.Context(), lib)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create library")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create library")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

// SyncLibrary triggers an immediate synchronous sync of a Library. A
// production deployment would typically enqueue this onto a background
// worker instead of blocking the request, but the orchestration itself
// (spec §4.8) is transport-agnostic; this handler just invokes it inline.
func (h *MediaSourceHandler) SyncLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID, err := parseID(chi.URLParam(r, "libraryID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	inserted, updated, err := h.service.SyncLibrary(r.Context(), libraryID)
	if err != nil {
		if errors.Is(err, mediasource.ErrLibraryNotFound) || errors.Is(err, mediasource.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "library not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to sync library", zap.Int64("library_id", libraryID))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to sync library")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int{
		"inserted": inserted,
		"updated":  updated,
	})
}
