package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/event"
	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/model"
)

// EventHandler handles manual Event overlay CRUD requests.
type EventHandler struct {
	service *event.Service
	logger  *zap.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(service *event.Service, logger *zap.Logger) *EventHandler {
	return &EventHandler{service: service, logger: logger}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	playoutID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	now := time.Now().UTC()
	from := parseTimeQuery(r, "from", now)
	to := parseTimeQuery(r, "to", now.Add(72*time.Hour))

	events, err := h.service.List(r.Context(), playoutID, from, to)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list events", zap.Int64("playout_id", playoutID))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	playoutID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var ev model.Event
	if err := httputil.DecodeJSON(r, &ev); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	ev.PlayoutID = playoutID
	created, err := h.service.Create(r.Context(), ev)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create event")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var ev model.Event
	if err := httputil.DecodeJSON(r, &ev); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	ev.ID = id
	updated, err := h.service.Update(r.Context(), ev)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "event not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update event", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "event not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete event", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
