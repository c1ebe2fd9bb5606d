package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playdaycuts/booking-api/internal/domain"
	"github.com/playdaycuts/booking-api/internal/geo"
	"github.com/playdaycuts/booking-api/internal/http/response"
	"github.com/playdaycuts/booking-api/internal/platform/sms"
	"github.com/playdaycuts/booking-api/pkg/logger"
)

type SMSHandler struct {
	Channel   sms.Channel
	Templates sms.Templates

	BusinessPhone string
}

func NewSMSHandler(channel sms.Channel, templates sms.Templates, businessPhone string) *SMSHandler {
	return &SMSHandler{Channel: channel, Templates: templates, BusinessPhone: businessPhone}
}

func (h *SMSHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/confirmation", h.confirmation)
	r.Post("/business-notification", h.businessNotification)
	return r
}

type confirmationSMSReq struct {
	Draft domain.Draft `json:"draft"`
	Code  string       `json:"code"`
}

func (h *SMSHandler) confirmation(w http.ResponseWriter, r *http.Request) {
	var in confirmationSMSReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Code == "" {
		response.BadRequest(w, "code is required")
		return
	}
	to, err := domain.NormalizePhone(in.Draft.Phone)
	if err != nil {
		response.BadRequest(w, "invalid phone number")
		return
	}
	h.send(w, r, to, h.Templates.CustomerConfirmation(&in.Draft, in.Code))
}

type businessSMSReq struct {
	Draft domain.Draft `json:"draft"`
}

func (h *SMSHandler) businessNotification(w http.ResponseWriter, r *http.Request) {
	var in businessSMSReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if h.BusinessPhone == "" {
		response.NotConfigured(w)
		return
	}
	h.send(w, r, h.BusinessPhone, h.Templates.BusinessNotification(&in.Draft, time.Now()))
}

func (h *SMSHandler) send(w http.ResponseWriter, r *http.Request, to, body string) {
	res, err := h.Channel.Send(r.Context(), to, body)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			logger.ErrorContext(r.Context(), "sms channel not configured")
			response.NotConfigured(w)
			return
		}
		logger.ErrorContext(r.Context(), "send sms", "error", err)
		response.InternalError(w, "error sending sms")
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

// MaintainerMailer is the email fan-out the endpoints expose directly.
type MaintainerMailer interface {
	BookingReminder(ctx context.Context, d *domain.Draft) error
	SMSFailureAlert(ctx context.Context, d *domain.Draft, smsErr string) error
	GeneralNotification(ctx context.Context, subject, message string) error
}

type EmailHandler struct {
	Mail MaintainerMailer
}

func NewEmailHandler(mail MaintainerMailer) *EmailHandler {
	return &EmailHandler{Mail: mail}
}

func (h *EmailHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/business-notification", h.businessNotification)
	r.Post("/sms-failure", h.smsFailure)
	r.Post("/notify", h.notify)
	return r
}

func (h *EmailHandler) businessNotification(w http.ResponseWriter, r *http.Request) {
	var in businessSMSReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if err := h.Mail.BookingReminder(r.Context(), &in.Draft); err != nil {
		h.mailError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"sent": true})
}

type smsFailureReq struct {
	Draft    domain.Draft `json:"draft"`
	SMSError string       `json:"sms_error"`
}

func (h *EmailHandler) smsFailure(w http.ResponseWriter, r *http.Request) {
	var in smsFailureReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if err := h.Mail.SMSFailureAlert(r.Context(), &in.Draft, in.SMSError); err != nil {
		h.mailError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"sent": true})
}

type generalEmailReq struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *EmailHandler) notify(w http.ResponseWriter, r *http.Request) {
	var in generalEmailReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Subject == "" || in.Message == "" {
		response.BadRequest(w, "subject and message are required")
		return
	}
	if err := h.Mail.GeneralNotification(r.Context(), in.Subject, in.Message); err != nil {
		h.mailError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"sent": true})
}

func (h *EmailHandler) mailError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotConfigured) {
		logger.ErrorContext(r.Context(), "mailer not configured")
		response.NotConfigured(w)
		return
	}
	logger.ErrorContext(r.Context(), "send email", "error", err)
	response.InternalError(w, "error sending email")
}

// MapsHandler hands the browser the key for address autocomplete and the
// service-area limits shown next to the address field.
type MapsHandler struct {
	APIKey string
	Origin string
	Geo    *geo.Checker
}

func NewMapsHandler(apiKey, origin string, checker *geo.Checker) *MapsHandler {
	return &MapsHandler{APIKey: apiKey, Origin: origin, Geo: checker}
}

func (h *MapsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/key", h.key)
	r.Get("/service-area", h.serviceArea)
	return r
}

func (h *MapsHandler) serviceArea(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"origin":       h.Origin,
		"radius_miles": h.Geo.RadiusMiles(),
	})
}

func (h *MapsHandler) key(w http.ResponseWriter, r *http.Request) {
	if h.APIKey == "" {
		logger.ErrorContext(r.Context(), "maps key not configured")
		response.NotConfigured(w)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"key": h.APIKey})
}
