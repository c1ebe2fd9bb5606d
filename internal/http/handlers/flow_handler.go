package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playdaycuts/booking-api/internal/booking"
	"github.com/playdaycuts/booking-api/internal/domain"
	"github.com/playdaycuts/booking-api/internal/http/response"
	"github.com/playdaycuts/booking-api/pkg/logger"
)

// FlowHandler exposes the per-session booking state machine.
type FlowHandler struct {
	Sessions *booking.Sessions
}

func NewFlowHandler(sessions *booking.Sessions) *FlowHandler {
	return &FlowHandler{Sessions: sessions}
}

func (h *FlowHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.start)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/select", h.selectSlot)
		r.Post("/contact", h.contact)
		r.Post("/address", h.address)
		r.Post("/submit", h.submit)
		r.Post("/retry", h.retry)
		r.Post("/abandon", h.abandon)
		r.Post("/resume", h.resume)
		r.Post("/confirm", h.confirm)
		r.Get("/", h.state)
	})
	return r
}

func (h *FlowHandler) start(w http.ResponseWriter, r *http.Request) {
	id, f := h.Sessions.Start()
	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"state":      f.State(),
	})
}

func (h *FlowHandler) flow(w http.ResponseWriter, r *http.Request) (*booking.Flow, bool) {
	f, ok := h.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		response.WriteError(w, http.StatusNotFound, "session not found", response.CodeSessionNotFound)
		return nil, false
	}
	return f, true
}

func (h *FlowHandler) state(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"state": f.State(),
		"draft": f.Draft(),
	})
}

type selectReq struct {
	Cut  string `json:"cut"`
	Day  string `json:"day"`
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *FlowHandler) selectSlot(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	var in selectReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Cut != "" {
		if err := f.SelectService(in.Cut); err != nil {
			h.flowError(w, r, err)
			return
		}
	}
	if in.Day != "" || in.Date != "" || in.Time != "" {
		if err := f.SelectSlot(in.Day, in.Date, in.Time); err != nil {
			h.flowError(w, r, err)
			return
		}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"state": f.State(), "draft": f.Draft()})
}

type contactReq struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Notes           string `json:"notes"`
	IsHouseCall     bool   `json:"is_house_call"`
	Address         string `json:"address"`
	AddressSelected bool   `json:"address_selected"`
}

func (h *FlowHandler) contact(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	var in contactReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	err := f.SetContact(booking.Contact{
		Name:            in.Name,
		Phone:           in.Phone,
		Notes:           in.Notes,
		IsHouseCall:     in.IsHouseCall,
		Address:         in.Address,
		AddressSelected: in.AddressSelected,
	})
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"state": f.State(), "draft": f.Draft()})
}

type addressReq struct {
	Address         string `json:"address"`
	AddressSelected bool   `json:"address_selected"`
}

// address is the live service-area check for the address field. It never
// changes flow state.
func (h *FlowHandler) address(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	var in addressReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	elig := f.CheckAddress(r.Context(), in.Address, in.AddressSelected)
	response.WriteJSON(w, http.StatusOK, elig)
}

func (h *FlowHandler) submit(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	out, err := f.Submit(r.Context())
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	h.writeOutcome(w, f, out)
}

func (h *FlowHandler) retry(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	out, err := f.Retry(r.Context())
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	h.writeOutcome(w, f, out)
}

func (h *FlowHandler) abandon(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	if err := f.Abandon(r.Context()); err != nil {
		h.flowError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"state": f.State()})
}

func (h *FlowHandler) resume(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	resumed, err := f.Resume(r.Context())
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"resumed": resumed,
		"state":   f.State(),
		"draft":   f.Draft(),
	})
}

type confirmReq struct {
	Code string `json:"code"`
}

func (h *FlowHandler) confirm(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	var in confirmReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	out, err := f.EnterCode(r.Context(), in.Code)
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	h.writeOutcome(w, f, out)
}

func (h *FlowHandler) writeOutcome(w http.ResponseWriter, f *booking.Flow, out booking.Outcome) {
	status := http.StatusOK
	if out.Status == booking.OutcomeSlotTaken {
		status = http.StatusConflict
	}
	response.WriteJSON(w, status, map[string]any{
		"state":   f.State(),
		"outcome": out,
	})
}

// flowError maps domain and state-machine errors onto the error envelope.
func (h *FlowHandler) flowError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, verr.Error())
	case errors.Is(err, domain.ErrOutsideServiceArea):
		response.WriteError(w, http.StatusConflict, "address is outside the service area", response.CodeOutsideServiceArea)
	case errors.Is(err, domain.ErrCodeMismatch):
		response.WriteError(w, http.StatusBadRequest, "incorrect confirmation code", response.CodeCodeMismatch)
	case errors.Is(err, domain.ErrCodeExpired):
		response.WriteError(w, http.StatusGone, "confirmation code expired, please start over", response.CodeCodeExpired)
	case errors.Is(err, booking.ErrBadTransition):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeBadTransition)
	case errors.Is(err, domain.ErrNotConfigured):
		logger.ErrorContext(r.Context(), "booking flow dependency not configured")
		response.NotConfigured(w)
	default:
		logger.ErrorContext(r.Context(), "booking flow", "error", err)
		response.InternalError(w, "something went wrong")
	}
}
