package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/event"
	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/playout"
)

// PlayoutHandler exposes the Playout's compiled state, its guide of
// upcoming Events, and the Build Driver's rebuild trigger.
type PlayoutHandler struct {
	store  playout.Store
	driver *playout.Driver
	events *event.Service
	opts   playout.Options
	logger *zap.Logger
}

// NewPlayoutHandler creates a PlayoutHandler.
func NewPlayoutHandler(store playout.Store, driver *playout.Driver, events *event.Service, opts playout.Options, logger *zap.Logger) *PlayoutHandler {
	return &PlayoutHandler{store: store, driver: driver, events: events, opts: opts, logger: logger}
}

func (h *PlayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	p, err := h.store.LoadPlayout(r.Context(), id)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to load playout", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusNotFound, "playout not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, p)
}

// Guide returns the Events scheduled for a Playout within an optional
// [from, to) window, defaulting to [now, now+lookahead).
func (h *PlayoutHandler) Guide(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	now := time.Now().UTC()
	from := parseTimeQuery(r, "from", now)
	to := parseTimeQuery(r, "to", now.Add(time.Duration(h.opts.LookaheadHours)*time.Hour))

	events, err := h.events.List(r.Context(), id, from, to)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list guide events", zap.Int64("playout_id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list guide events")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, events)
}

// Rebuild triggers the Build Driver for a Playout (spec §4.6). Build and
// rebuild are the same idempotent operation.
func (h *PlayoutHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	result, err := h.driver.Build(r.Context(), h.opts, id)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to build playout", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to build playout")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
