package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/fillerpreset"
	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/model"
)

// FillerPresetHandler handles Filler Preset CRUD requests.
type FillerPresetHandler struct {
	service *fillerpreset.Service
	logger  *zap.Logger
}

// NewFillerPresetHandler creates a FillerPresetHandler.
func NewFillerPresetHandler(service *fillerpreset.Service, logger *zap.Logger) *FillerPresetHandler {
	return &FillerPresetHandler{service: service, logger: logger}
}

func (h *FillerPresetHandler) List(w http.ResponseWriter, r *http.Request) {
	presets, err := h.service.List(r.Context())
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list filler presets")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list filler presets")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, presets)
}

func (h *FillerPresetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	preset, err := h.service.FillerPreset(r.Context(), id)
	if err != nil {
		if errors.Is(err, fillerpreset.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "filler preset not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to get filler preset", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to get filler preset")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, preset)
}

func (h *FillerPresetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var preset model.FillerPreset
	if err := httputil.DecodeJSON(r, &preset); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), preset)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create filler preset")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create filler preset")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *FillerPresetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var preset model.FillerPreset
	if err := httputil.DecodeJSON(r, &preset); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	preset.ID = id
	updated, err := h.service.Update(r.Context(), preset)
	if err != nil {
		if errors.Is(err, fillerpreset.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "filler preset not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update filler preset", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update filler preset")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *FillerPresetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, fillerpreset.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "filler preset not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete filler preset", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete filler preset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
