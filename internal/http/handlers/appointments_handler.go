package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playdaycuts/booking-api/internal/domain"
	"github.com/playdaycuts/booking-api/internal/http/response"
	"github.com/playdaycuts/booking-api/internal/platform/sms"
	"github.com/playdaycuts/booking-api/internal/repo/postgres"
	"github.com/playdaycuts/booking-api/pkg/logger"
)

type AppointmentsHandler struct {
	Repo      postgres.AppointmentRepo
	Retention time.Duration

	// Cancellations text the business about the freed slot.
	Channel       sms.Channel
	Templates     sms.Templates
	BusinessPhone string
}

func NewAppointmentsHandler(repo postgres.AppointmentRepo, retention time.Duration, channel sms.Channel, templates sms.Templates, businessPhone string) *AppointmentsHandler {
	return &AppointmentsHandler{
		Repo:          repo,
		Retention:     retention,
		Channel:       channel,
		Templates:     templates,
		BusinessPhone: businessPhone,
	}
}

func (h *AppointmentsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/old", h.deleteOld)
	r.Delete("/{id}", h.cancel)
	r.Get("/check-code", h.checkCode)
	r.Get("/slot", h.slot)
	return r
}

func (h *AppointmentsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	as, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "list appointments", "error", err)
		response.InternalError(w, "error listing appointments")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"appointments": as})
}

type createAppointmentReq struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Cut              string `json:"cut"`
	Day              string `json:"day"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Location         string `json:"location"`
	Address          string `json:"address"`
	Notes            string `json:"notes"`
	ConfirmationCode string `json:"confirmation_code"`
}

// create is the direct persistence endpoint. The usual path goes through the
// booking flow; this mirrors it for trusted callers and tooling.
func (h *AppointmentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in createAppointmentReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Name == "" || in.Phone == "" || in.Cut == "" || in.Day == "" ||
		in.Date == "" || in.Time == "" || in.Location == "" || in.ConfirmationCode == "" {
		response.BadRequest(w, "missing required fields")
		return
	}
	if !domain.IsBookableDay(in.Day) {
		response.BadRequest(w, "day is not bookable")
		return
	}
	if !domain.ValidPhone(in.Phone) {
		response.BadRequest(w, "invalid phone number")
		return
	}

	a, err := h.Repo.Create(r.Context(), &domain.Appointment{
		Name:             in.Name,
		Phone:            in.Phone,
		Cut:              in.Cut,
		Day:              in.Day,
		Date:             in.Date,
		Time:             in.Time,
		Location:         in.Location,
		Address:          in.Address,
		Notes:            in.Notes,
		ConfirmationCode: in.ConfirmationCode,
		Status:           domain.AppointmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			response.Conflict(w, "time slot is no longer available", response.CodeSlotTaken)
			return
		}
		logger.ErrorContext(r.Context(), "create appointment", "error", err)
		response.InternalError(w, "error creating appointment")
		return
	}
	response.WriteJSON(w, http.StatusCreated, a)
}

func (h *AppointmentsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid appointment id")
		return
	}
	a, err := h.Repo.Cancel(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "cancel appointment", "error", err)
		response.InternalError(w, "error cancelling appointment")
		return
	}
	if a == nil {
		response.NotFound(w, "appointment not found")
		return
	}
	h.notifyCancellation(r.Context(), a)
	response.WriteJSON(w, http.StatusOK, map[string]any{"cancelled": true, "appointment": a})
}

// notifyCancellation texts the business that a slot freed up. Best effort;
// the cancellation stands either way.
func (h *AppointmentsHandler) notifyCancellation(ctx context.Context, a *domain.Appointment) {
	if h.Channel == nil || h.BusinessPhone == "" {
		return
	}
	d := &domain.Draft{
		Name: a.Name, Phone: a.Phone, Cut: a.Cut,
		Day: a.Day, Date: a.Date, Time: a.Time,
		IsHouseCall: a.Address != "", Address: a.Address,
	}
	res, err := h.Channel.Send(ctx, h.BusinessPhone, h.Templates.CancellationNotice(d, time.Now()))
	if err != nil || !res.Delivered {
		reason := res.Err
		if err != nil {
			reason = err.Error()
		}
		logger.WarnContext(ctx, "cancellation notice sms failed", "error", reason)
	}
}

func (h *AppointmentsHandler) deleteOld(w http.ResponseWriter, r *http.Request) {
	n, err := h.Repo.DeleteOlderThan(r.Context(), h.Retention)
	if err != nil {
		logger.ErrorContext(r.Context(), "delete old appointments", "error", err)
		response.InternalError(w, "error deleting old appointments")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// slot reports whether a (date, time) pair is already held, the same check
// the store repeats at persistence time.
func (h *AppointmentsHandler) slot(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	timeLabel := r.URL.Query().Get("time")
	if date == "" || timeLabel == "" {
		response.BadRequest(w, "date and time are required")
		return
	}
	n, err := h.Repo.CountActiveAt(r.Context(), date, timeLabel)
	if err != nil {
		logger.ErrorContext(r.Context(), "check slot", "error", err)
		response.InternalError(w, "error checking slot")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"slot":   domain.SlotKey(date, timeLabel),
		"booked": n > 0,
	})
}

func (h *AppointmentsHandler) checkCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.BadRequest(w, "code is required")
		return
	}
	a, err := h.Repo.FindByConfirmationCode(r.Context(), code)
	if err != nil {
		logger.ErrorContext(r.Context(), "check confirmation code", "error", err)
		response.InternalError(w, "error checking code")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"exists":      a != nil,
		"appointment": a,
	})
}
