package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/httputil"
	"github.com/fudoniten/pseudovision/internal/model"
	"github.com/fudoniten/pseudovision/internal/schedule"
)

// ScheduleHandler handles Schedule and Slot CRUD requests.
type ScheduleHandler struct {
	service *schedule.Service
	logger  *zap.Logger
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(service *schedule.Service, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, logger: logger}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.List(r.Context())
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list schedules")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	sch, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "schedule not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to get schedule", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to get schedule")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sch)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sch model.Schedule
	if err := httputil.DecodeJSON(r, &sch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), sch)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to create schedule")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create schedule")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var sch model.Schedule
	if err := httputil.DecodeJSON(r, &sch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	sch.ID = id
	updated, err := h.service.Update(r.Context(), sch)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "schedule not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update schedule", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update schedule")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "schedule not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete schedule", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	slots, err := h.service.Slots(r.Context(), scheduleID)
	if err != nil {
		httputil.LogError(h.logger, err, "failed to list slots", zap.Int64("schedule_id", scheduleID))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to list slots")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, slots)
}

func (h *ScheduleHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var slot model.Slot
	if err := httputil.DecodeJSON(r, &slot); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	slot.ScheduleID = scheduleID
	created, err := h.service.CreateSlot(r.Context(), slot)
	if err != nil {
		if errors.Is(err, model.ErrSlotSourceAmbiguous) || errors.Is(err, model.ErrFixedSlotNeedsStartTime) ||
			errors.Is(err, model.ErrCountSlotNeedsItemCount) || errors.Is(err, model.ErrBlockSlotNeedsDuration) {
			httputil.RespondError(w, http.StatusBadRequest, err, "validation error")
			return
		}
		httputil.LogError(h.logger, err, "failed to create slot")
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to create slot")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, created)
}

func (h *ScheduleHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "slotID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	var slot model.Slot
	if err := httputil.DecodeJSON(r, &slot); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	slot.ID = id
	updated, err := h.service.UpdateSlot(r.Context(), slot)
	if err != nil {
		if errors.Is(err, model.ErrSlotSourceAmbiguous) || errors.Is(err, model.ErrFixedSlotNeedsStartTime) ||
			errors.Is(err, model.ErrCountSlotNeedsItemCount) || errors.Is(err, model.ErrBlockSlotNeedsDuration) {
			httputil.RespondError(w, http.StatusBadRequest, err, "validation error")
			return
		}
		if errors.Is(err, schedule.ErrSlotNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "slot not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to update slot", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to update slot")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *ScheduleHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "slotID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err, "invalid ID")
		return
	}
	if err := h.service.DeleteSlot(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrSlotNotFound) {
			httputil.RespondErrorMessage(w, http.StatusNotFound, "slot not found")
			return
		}
		httputil.LogError(h.logger, err, "failed to delete slot", zap.Int64("id", id))
		httputil.RespondErrorMessage(w, http.StatusInternalServerError, "failed to delete slot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
