package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/collection"
	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/model"
)

// CollectionHandler handles Collection CRUD requests.
type CollectionHandler struct {
	service  *collection.Service
	resolver *collection.Resolver
	logger   *zap.Logger
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(service *collection.Service, resolver *collection.Resolver, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{service: service, resolver: resolver, logger: logger}
}

func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	cols, err := h.service.List(r.Context())
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list collections")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list collections")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, cols)
}

func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	col, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "collection not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to get collection", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to get collection")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, col)
}

// Items returns the resolved, ordered Media Item expansion of a
// Collection, the same list the build engine consumes.
func (h *CollectionHandler) Items(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	items, err := h.resolver.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "collection not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to resolve collection", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to resolve collection")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, items)
}

func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var col model.Collection
	if err := httputil.DecodeJSON(r, &col); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), col)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create collection")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create collection")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var col model.Collection
	if err := httputil.DecodeJSON(r, &col); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	col.ID = id
	updated, err := h.service.Update(r.Context(), col)
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "collection not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update collection", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update collection")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "collection not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete collection", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete collection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetManualItems replaces a manual Collection's ordered item list.
func (h *CollectionHandler) SetManualItems(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var body struct {
		MediaItemIDs []int64 `json:"media_item_ids"`
	}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	if err := h.service.SetManualItems(r.Context(), id, body.MediaItemIDs); err != nil {
		httputil.LogError(h.logger, err, "failed to set manual items", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to set manual items")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
