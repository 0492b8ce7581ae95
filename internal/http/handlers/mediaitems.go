package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/mediaitem"
	"github.com/fudoniten/pseudovision/internal/model"
)

// MediaItemHandler handles Media Item CRUD requests.
type MediaItemHandler struct {
	service *mediaitem.Service
	logger  *zap.Logger
}

// NewMediaItemHandler creates a MediaItemHandler.
func NewMediaItemHandler(service *mediaitem.Service, logger *zap.Logger) *MediaItemHandler {
	return &MediaItemHandler{service: service, logger: logger}
}

func (h *MediaItemHandler) List(w http.ResponseWriter, r *http.Request) {
	var libraryID *int64
	if raw := r.URL.Query().Get("library_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.RespondErrorMessage(w, http.StatusBadRequest, "invalid library_id")
			return
		}
		libraryID = &id
	}
	items, err := h.service.List(r.Context(), libraryID)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list media items")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list media items")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, items)
}

func (h *MediaItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	item, err := h.service.MediaItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, mediaitem.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "media item not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to get media item", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to get media item")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}

func (h *MediaItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.MediaItem
	if err := httputil.DecodeJSON(r, &item); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), item)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create media item")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create media item")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *MediaItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var item model.MediaItem
	if err := httputil.DecodeJSON(r, &item); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	item.ID = id
	updated, err := h.service.Update(r.Context(), item)
	if err != nil {
		if errors.Is(err, mediaitem.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "media item not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update media item", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update media item")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *MediaItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, mediaitem.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "media item not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete media item", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete media item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
