package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playdaycuts/booking-api/internal/http/response"
	"github.com/playdaycuts/booking-api/internal/schedule"
	"github.com/playdaycuts/booking-api/pkg/logger"
)

// BookedSlotSource rebuilds the occupied-slot snapshot from the store.
type BookedSlotSource interface {
	BookedSlotKeys(ctx context.Context) (map[string]struct{}, error)
}

type AvailabilityHandler struct {
	Source BookedSlotSource
	Slots  schedule.Slots

	now func() time.Time
}

func NewAvailabilityHandler(source BookedSlotSource, slots schedule.Slots) *AvailabilityHandler {
	return &AvailabilityHandler{Source: source, Slots: slots, now: time.Now}
}

func (h *AvailabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.week)
	return r
}

type availabilityRes struct {
	Week         schedule.Week `json:"week"`
	FullyBooked  bool          `json:"fully_booked"`
	AutoAdvanced bool          `json:"auto_advanced"`
	CanGoPrev    bool          `json:"can_go_prev"`
}

// week computes the requested week's availability. A fully booked current
// week auto-advances to the next one; backward navigation is disabled when
// everything behind the displayed week is booked or past.
func (h *AvailabilityHandler) week(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("week"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "week must be a non-negative integer")
			return
		}
		offset = parsed
	}

	keys, err := h.Source.BookedSlotKeys(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "load booked slots", "error", err)
		response.InternalError(w, "error loading availability")
		return
	}
	booked := schedule.SlotSet(keys)
	now := h.now()

	week := schedule.Compute(now, offset, booked, h.Slots)
	autoAdvanced := false
	if offset == 0 && week.FullyBooked() {
		offset = 1
		week = schedule.Compute(now, offset, booked, h.Slots)
		autoAdvanced = true
	}

	response.WriteJSON(w, http.StatusOK, availabilityRes{
		Week:         week,
		FullyBooked:  week.FullyBooked(),
		AutoAdvanced: autoAdvanced,
		CanGoPrev:    !schedule.PreviousWeekFullyBooked(now, offset, booked, h.Slots) && offset > 0,
	})
}
