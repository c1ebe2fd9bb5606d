package domain

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(s) {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled:
		return AppointmentStatus(s), true
	default:
		return "", false
	}
}

// Appointment is a persisted booking row. Rows are created once and never
// updated by the booking core; an external housekeeping pass prunes them
// after the retention window.
type Appointment struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Phone            string            `json:"phone"`
	Cut              string            `json:"cut"`
	Day              string            `json:"day"`
	Date             string            `json:"date"` // "M/D"
	Time             string            `json:"time"` // slot label, e.g. "4:00PM"
	Location         string            `json:"location"`
	Address          string            `json:"address,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	ConfirmationCode string            `json:"confirmation_code"`
	Status           AppointmentStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SlotKey identifies the slot an appointment occupies, in the same
// "{M/D}-{time label}" form the availability calculator consumes.
func (a *Appointment) SlotKey() string {
	return SlotKey(a.Date, a.Time)
}

func SlotKey(date, timeLabel string) string {
	return date + "-" + timeLabel
}

// Draft is the client-held appointment under construction. It is mutated
// through the booking steps, frozen and stamped with a confirmation code at
// submission, and discarded after persistence or abandonment.
type Draft struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Cut             string `json:"cut"`
	Day             string `json:"day"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	IsHouseCall     bool   `json:"is_house_call"`
	Address         string `json:"address,omitempty"`
	AddressSelected bool   `json:"address_selected,omitempty"`
	Notes           string `json:"notes,omitempty"`

	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

var bookableDays = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
}

func IsBookableDay(day string) bool { return bookableDays[day] }

// LocationLabel renders the stored location field the way the site does.
func (d *Draft) LocationLabel() string {
	if d.IsHouseCall {
		return "House Call (+$5) - " + d.Address
	}
	return "At Location"
}

// HasSlot reports whether service, day and time are all chosen (the guard
// for leaving the availability step).
func (d *Draft) HasSlot() bool {
	return d.Cut != "" && d.Day != "" && d.Time != ""
}

// Validate checks full-form submittability. House-call distance eligibility
// is the distance checker's concern; here the address only has to be present
// and explicitly selected.
func (d *Draft) Validate() error {
	var missing []string
	if d.Cut == "" {
		missing = append(missing, "cut")
	}
	if d.Day == "" {
		missing = append(missing, "day")
	}
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.Time == "" {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if d.Phone == "" {
		missing = append(missing, "phone")
	}
	if d.IsHouseCall && strings.TrimSpace(d.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	if d.Day != "" && !IsBookableDay(d.Day) {
		return &ValidationError{Fields: []string{"day"}, Reason: fmt.Sprintf("%q is not a bookable day", d.Day)}
	}
	if !ValidPhone(d.Phone) {
		return &ValidationError{Fields: []string{"phone"}, Reason: "not a valid North American phone number"}
	}
	if d.IsHouseCall && !d.AddressSelected {
		return &ValidationError{Fields: []string{"address"}, Reason: "address must be selected from the suggestions"}
	}
	return nil
}

// ValidPhone accepts 10-digit NANP numbers, or 11 digits with a leading 1.
func ValidPhone(phone string) bool {
	digits := digitsOf(phone)
	if len(digits) == 10 {
		return true
	}
	return len(digits) == 11 && digits[0] == '1'
}

// NormalizePhone renders a valid phone in E.164 form (+1XXXXXXXXXX).
func NormalizePhone(phone string) (string, error) {
	digits := digitsOf(phone)
	switch {
	case len(digits) == 10:
		return "+1" + digits, nil
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	default:
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
