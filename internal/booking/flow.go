// Package booking drives a customer's appointment from slot selection through
// confirmation-code entry to the persisted row, one Flow per session.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playdaycuts/booking-api/internal/confirm"
	"github.com/playdaycuts/booking-api/internal/domain"
	"github.com/playdaycuts/booking-api/internal/geo"
	"github.com/playdaycuts/booking-api/internal/platform/sms"
	"github.com/playdaycuts/booking-api/internal/repo/redisrepo"
	"github.com/playdaycuts/booking-api/pkg/events"
	"github.com/playdaycuts/booking-api/pkg/logger"
)

type State string

const (
	StateSelectingService      State = "selecting_service"
	StateSelectingAvailability State = "selecting_availability"
	StateEnteringContact       State = "entering_contact"
	StateAwaitingCode          State = "awaiting_code"
	StatePersisting            State = "persisting"
	StateDone                  State = "done"
	StateRecoverableFailure    State = "recoverable_failure"
)

var ErrBadTransition = errors.New("operation not allowed in current state")

// OutcomeStatus classifies how a submit or confirm attempt settled.
type OutcomeStatus string

const (
	// OutcomeAwaitingCode: the confirmation SMS went out, waiting for entry.
	OutcomeAwaitingCode OutcomeStatus = "awaiting_code"
	// OutcomeRetryable: the SMS provider was unreachable; the customer picks
	// retry or abandon.
	OutcomeRetryable OutcomeStatus = "retryable"
	// OutcomeContactBusiness: no automatic path forward; the customer must
	// call the business.
	OutcomeContactBusiness OutcomeStatus = "contact_business"
	// OutcomeSlotTaken: somebody else landed the slot first.
	OutcomeSlotTaken OutcomeStatus = "slot_taken"
	// OutcomeSaveFailed: persistence failed for a reason other than a
	// collision.
	OutcomeSaveFailed OutcomeStatus = "save_failed"
	// OutcomeBooked: appointment persisted and confirmed.
	OutcomeBooked OutcomeStatus = "booked"
)

type Outcome struct {
	Status      OutcomeStatus       `json:"status"`
	Message     string              `json:"message,omitempty"`
	Appointment *domain.Appointment `json:"appointment,omitempty"`
}

// Store is the slice of the appointment repo the flow needs.
type Store interface {
	Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error)
}

// Issuer issues unique pending confirmation codes.
type Issuer interface {
	Issue(ctx context.Context) (*confirm.Pending, error)
}

// Staging parks drafts and arbitrates concurrent submits for a session.
type Staging interface {
	Stage(ctx context.Context, sessionID string, staged *redisrepo.StagedDraft) error
	Fetch(ctx context.Context, sessionID string) (*redisrepo.StagedDraft, error)
	Discard(ctx context.Context, sessionID string) error
	AcquireSubmitLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	ReleaseSubmitLock(ctx context.Context, sessionID string) error
}

// MaintainerNotifier is the email side of the post-booking fan-out.
type MaintainerNotifier interface {
	BookingReminder(ctx context.Context, d *domain.Draft) error
	SMSFailureAlert(ctx context.Context, d *domain.Draft, smsErr string) error
}

// Deps are the collaborators shared by every flow.
type Deps struct {
	Store     Store
	Issuer    Issuer
	SMS       sms.Channel
	Templates sms.Templates
	Mail      MaintainerNotifier
	Staging   Staging
	Geo       *geo.Checker
	Bus       events.Publisher

	BusinessPhone string
	SubmitLockTTL time.Duration
}

// Flow is one customer's booking in progress. Methods are safe for the
// concurrent calls a double-submitted form produces.
type Flow struct {
	deps      Deps
	sessionID string

	mu      sync.Mutex
	state   State
	draft   domain.Draft
	pending *confirm.Pending
	watcher *geo.Watcher

	// notifyWG tracks the detached notification goroutines. The booking path
	// never waits on it.
	notifyWG sync.WaitGroup
}

func NewFlow(deps Deps, sessionID string) *Flow {
	if deps.SubmitLockTTL <= 0 {
		deps.SubmitLockTTL = 30 * time.Second
	}
	return &Flow{deps: deps, sessionID: sessionID, state: StateSelectingService}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Draft() domain.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SelectService records the cut. Allowed from the initial state and after a
// finished or reset booking.
func (f *Flow) SelectService(cut string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateSelectingService, StateSelectingAvailability, StateDone:
	default:
		return fmt.Errorf("select service from %s: %w", f.state, ErrBadTransition)
	}
	if f.state == StateDone {
		f.draft = domain.Draft{}
	}
	f.draft.Cut = cut
	f.state = StateSelectingAvailability
	return nil
}

// SelectSlot records the chosen day, date and time. Moving on to contact
// entry requires all three plus the service.
func (f *Flow) SelectSlot(day, date, timeLabel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateSelectingAvailability, StateEnteringContact:
	default:
		return fmt.Errorf("select slot from %s: %w", f.state, ErrBadTransition)
	}
	if !domain.IsBookableDay(day) {
		return &domain.ValidationError{Fields: []string{"day"}, Reason: fmt.Sprintf("%q is not a bookable day", day)}
	}
	f.draft.Day, f.draft.Date, f.draft.Time = day, date, timeLabel
	if f.draft.HasSlot() {
		f.state = StateEnteringContact
	}
	return nil
}

// Contact carries the fields of the contact step.
type Contact struct {
	Name            string
	Phone           string
	Notes           string
	IsHouseCall     bool
	Address         string
	AddressSelected bool
}

// SetContact records contact details. Validation happens at submit, matching
// the form's behavior of letting fields be edited freely until then.
func (f *Flow) SetContact(c Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateEnteringContact, StateRecoverableFailure:
	default:
		return fmt.Errorf("set contact from %s: %w", f.state, ErrBadTransition)
	}
	f.draft.Name = c.Name
	f.draft.Phone = c.Phone
	f.draft.Notes = c.Notes
	f.draft.IsHouseCall = c.IsHouseCall
	f.draft.Address = c.Address
	f.draft.AddressSelected = c.AddressSelected
	f.state = StateEnteringContact
	return nil
}

// CheckAddress runs the live service-area check as the customer edits the
// address field. Submit repeats the check authoritatively; this one only
// feeds the form. Without a distance checker every address passes.
func (f *Flow) CheckAddress(ctx context.Context, address string, selected bool) geo.Eligibility {
	f.mu.Lock()
	if f.watcher == nil && f.deps.Geo != nil {
		f.watcher = geo.NewWatcher(f.deps.Geo)
	}
	w := f.watcher
	f.mu.Unlock()

	if w == nil {
		return geo.Eligibility{Eligible: true}
	}
	return w.Update(ctx, address, selected)
}

// Submit validates the draft, issues a confirmation code and texts it to the
// customer. See Outcome for the ways this settles.
func (f *Flow) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.state != StateEnteringContact {
		state := f.state
		f.mu.Unlock()
		return Outcome{}, fmt.Errorf("submit from %s: %w", state, ErrBadTransition)
	}
	f.mu.Unlock()
	return f.submit(ctx)
}

// Retry re-runs submission after a transport failure: same draft, fresh code.
func (f *Flow) Retry(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.state != StateRecoverableFailure {
		state := f.state
		f.mu.Unlock()
		return Outcome{}, fmt.Errorf("retry from %s: %w", state, ErrBadTransition)
	}
	f.state = StateEnteringContact
	f.mu.Unlock()
	return f.submit(ctx)
}

func (f *Flow) submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	draft := f.draft
	f.mu.Unlock()

	if err := draft.Validate(); err != nil {
		return Outcome{}, err
	}
	if draft.IsHouseCall && f.deps.Geo != nil {
		res := f.deps.Geo.CheckEligibility(ctx, draft.Address, draft.AddressSelected)
		if !res.Eligible {
			return Outcome{}, fmt.Errorf("%s: %w", res.Error, domain.ErrOutsideServiceArea)
		}
	}

	locked, err := f.deps.Staging.AcquireSubmitLock(ctx, f.sessionID, f.deps.SubmitLockTTL)
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !locked {
		return Outcome{}, errors.New("a submission is already in flight for this session")
	}
	defer func() {
		if err := f.deps.Staging.ReleaseSubmitLock(context.WithoutCancel(ctx), f.sessionID); err != nil {
			logger.WarnContext(ctx, "release submit lock", "error", err)
		}
	}()

	pending, err := f.deps.Issuer.Issue(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("issue confirmation code: %w", err)
	}
	draft.ConfirmationCode = pending.Code

	to, err := domain.NormalizePhone(draft.Phone)
	if err != nil {
		return Outcome{}, &domain.ValidationError{Fields: []string{"phone"}, Reason: err.Error()}
	}

	res, err := f.deps.SMS.Send(ctx, to, f.deps.Templates.CustomerConfirmation(&draft, pending.Code))
	if err != nil {
		// Provider unreachable. The customer decides: retry or abandon.
		logger.WarnContext(ctx, "confirmation sms transport failure", "error", err)
		f.setState(StateRecoverableFailure)
		return Outcome{
			Status:  OutcomeRetryable,
			Message: "We couldn't send your confirmation text. Retry, or call " + f.deps.BusinessPhone + " to book by phone.",
		}, nil
	}
	if !res.Delivered {
		// The provider answered and refused (bad number or similar). No
		// retry loop; alert the maintainer and drop the draft.
		logger.WarnContext(ctx, "confirmation sms rejected", "reason", res.Err)
		if f.deps.Mail != nil {
			if mailErr := f.deps.Mail.SMSFailureAlert(ctx, &draft, res.Err); mailErr != nil {
				logger.ErrorContext(ctx, "sms failure alert email", "error", mailErr)
			}
		}
		f.reset()
		return Outcome{
			Status:  OutcomeContactBusiness,
			Message: "We couldn't text your number. Please call " + f.deps.BusinessPhone + " to book.",
		}, nil
	}

	staged := &redisrepo.StagedDraft{Draft: draft, Code: pending.Code, IssuedAt: pending.IssuedAt}
	if err := f.deps.Staging.Stage(ctx, f.sessionID, staged); err != nil {
		logger.WarnContext(ctx, "stage draft", "error", err)
	}
	f.publish(ctx, events.AppointmentStaged, events.AppointmentStagedEvent{
		StagingKey:   f.sessionID,
		CustomerName: draft.Name,
		Phone:        draft.Phone,
		Date:         draft.Date,
		Time:         draft.Time,
		StagedAt:     pending.IssuedAt,
	})

	f.mu.Lock()
	f.draft = draft
	f.pending = pending
	f.state = StateAwaitingCode
	f.mu.Unlock()

	return Outcome{Status: OutcomeAwaitingCode, Message: "Check your phone for a confirmation code."}, nil
}

// Abandon parks the draft for manual recovery and resets the flow. The
// customer was pointed at the business phone number.
func (f *Flow) Abandon(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateRecoverableFailure && f.state != StateAwaitingCode {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("abandon from %s: %w", state, ErrBadTransition)
	}
	draft := f.draft
	f.mu.Unlock()

	staged := &redisrepo.StagedDraft{Draft: draft, IssuedAt: time.Now()}
	if err := f.deps.Staging.Stage(ctx, f.sessionID, staged); err != nil {
		logger.WarnContext(ctx, "stage abandoned draft", "error", err)
	}
	f.reset()
	return nil
}

// Resume restores a previously abandoned draft for this session. The staged
// code, if any, is not honored; the customer re-submits for a fresh one.
// Returns false when nothing is staged.
func (f *Flow) Resume(ctx context.Context) (bool, error) {
	f.mu.Lock()
	if f.state != StateSelectingService {
		state := f.state
		f.mu.Unlock()
		return false, fmt.Errorf("resume from %s: %w", state, ErrBadTransition)
	}
	f.mu.Unlock()

	staged, err := f.deps.Staging.Fetch(ctx, f.sessionID)
	if err != nil {
		return false, fmt.Errorf("fetch staged draft: %w", err)
	}
	if staged == nil {
		return false, nil
	}

	f.mu.Lock()
	f.draft = staged.Draft
	switch {
	case f.draft.Cut != "" && f.draft.HasSlot():
		f.state = StateEnteringContact
	case f.draft.Cut != "":
		f.state = StateSelectingAvailability
	default:
		f.state = StateSelectingService
	}
	f.mu.Unlock()

	if err := f.deps.Staging.Discard(ctx, f.sessionID); err != nil {
		logger.WarnContext(ctx, "discard resumed draft", "error", err)
	}
	return true, nil
}

// EnterCode checks the entered confirmation code and, on a match, persists
// the appointment. Mismatches leave the flow waiting for another attempt;
// an expired code forces a restart.
func (f *Flow) EnterCode(ctx context.Context, entered string) (Outcome, error) {
	f.mu.Lock()
	if f.state != StateAwaitingCode || f.pending == nil {
		state := f.state
		f.mu.Unlock()
		return Outcome{}, fmt.Errorf("enter code from %s: %w", state, ErrBadTransition)
	}
	pending := f.pending
	draft := f.draft
	f.mu.Unlock()

	if err := pending.Verify(entered, time.Now()); err != nil {
		if errors.Is(err, domain.ErrCodeExpired) {
			f.reset()
		}
		return Outcome{}, err
	}

	f.setState(StatePersisting)

	appt := &domain.Appointment{
		Name:             draft.Name,
		Phone:            draft.Phone,
		Cut:              draft.Cut,
		Day:              draft.Day,
		Date:             draft.Date,
		Time:             draft.Time,
		Location:         draft.LocationLabel(),
		Address:          draft.Address,
		Notes:            draft.Notes,
		ConfirmationCode: pending.Code,
		Status:           domain.AppointmentConfirmed,
	}

	created, err := f.deps.Store.Create(ctx, appt)
	if err != nil {
		f.reset()
		if errors.Is(err, domain.ErrSlotTaken) {
			return Outcome{
				Status:  OutcomeSlotTaken,
				Message: "That time was just booked by someone else. Please pick another slot.",
			}, nil
		}
		logger.ErrorContext(ctx, "persist appointment", "error", err)
		return Outcome{
			Status:  OutcomeSaveFailed,
			Message: "Your appointment may not have been saved. Please call " + f.deps.BusinessPhone + " to confirm.",
		}, nil
	}

	if err := f.deps.Staging.Discard(ctx, f.sessionID); err != nil {
		logger.WarnContext(ctx, "discard staged draft", "error", err)
	}

	f.notifyBusiness(ctx, &draft, created)
	f.publish(ctx, events.AppointmentCreated, events.AppointmentCreatedEvent{
		AppointmentID:    created.ID,
		CustomerName:     created.Name,
		Cut:              created.Cut,
		Day:              created.Day,
		Date:             created.Date,
		Time:             created.Time,
		Location:         created.Location,
		ConfirmationCode: created.ConfirmationCode,
		CreatedAt:        created.CreatedAt,
	})

	f.mu.Lock()
	f.draft = domain.Draft{}
	f.pending = nil
	f.state = StateDone
	f.mu.Unlock()

	return Outcome{Status: OutcomeBooked, Message: "You're booked!", Appointment: created}, nil
}

// notifyBusiness fires the business SMS and email in the background. The
// customer's outcome never waits on them; failures are logged and published.
func (f *Flow) notifyBusiness(ctx context.Context, draft *domain.Draft, created *domain.Appointment) {
	ctx = context.WithoutCancel(ctx)

	if f.deps.BusinessPhone != "" {
		f.notifyWG.Add(1)
		go func() {
			defer f.notifyWG.Done()
			body := f.deps.Templates.BusinessNotification(draft, created.CreatedAt)
			res, err := f.deps.SMS.Send(ctx, f.deps.BusinessPhone, body)
			if err == nil && res.Delivered {
				return
			}
			reason := res.Err
			if err != nil {
				reason = err.Error()
			}
			logger.WarnContext(ctx, "business notification sms failed", "error", reason)
			f.publish(ctx, events.NotifyFailed, events.NotifyFailedEvent{
				Channel: "sms", AppointmentID: created.ID, Error: reason, FailedAt: time.Now(),
			})
		}()
	}

	if f.deps.Mail != nil {
		f.notifyWG.Add(1)
		go func() {
			defer f.notifyWG.Done()
			if err := f.deps.Mail.BookingReminder(ctx, draft); err != nil {
				logger.WarnContext(ctx, "business notification email failed", "error", err)
				f.publish(ctx, events.NotifyFailed, events.NotifyFailedEvent{
					Channel: "email", AppointmentID: created.ID, Error: err.Error(), FailedAt: time.Now(),
				})
			}
		}()
	}
}

func (f *Flow) publish(ctx context.Context, subject string, payload any) {
	if f.deps.Bus == nil {
		return
	}
	if err := f.deps.Bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "publish event", "subject", subject, "error", err)
	}
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) reset() {
	f.mu.Lock()
	f.draft = domain.Draft{}
	f.pending = nil
	f.state = StateSelectingService
	w := f.watcher
	f.mu.Unlock()
	if w != nil {
		w.Reset()
	}
}

// Reset returns the flow to the initial state, dropping the draft.
func (f *Flow) Reset() { f.reset() }
