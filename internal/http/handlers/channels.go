package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/channel"
	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/model"
)

// ChannelHandler handles Channel CRUD requests.
type ChannelHandler struct {
	service *channel.Service
	logger  *zap.Logger
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(service *channel.Service, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{service: service, logger: logger}
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.service.List(r.Context())
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list channels")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list channels")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, channels)
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	ch, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, channel.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "channel not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to get channel", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to get channel")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ch model.Channel
	if err := httputil.DecodeJSON(r, &ch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), ch)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create channel")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create channel")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var ch model.Channel
	if err := httputil.DecodeJSON(r, &ch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	ch.ID = id
	updated, err := h.service.Update(r.Context(), ch)
	if err != nil {
		if errors.Is(err, channel.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "channel not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update channel", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update channel")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, channel.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "channel not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete channel", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete channel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
