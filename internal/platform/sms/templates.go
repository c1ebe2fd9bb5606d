package sms

import (
	"fmt"
	"strings"
	"time"

	"github.com/playdaycuts/booking-api/internal/domain"
)

// Templates renders the two message bodies the booking flow sends, plus the
// cancellation notice. Business contact details come from configuration.
type Templates struct {
	BusinessPhone   string
	BusinessAddress string
}

func (t Templates) displayAddress(d *domain.Draft) string {
	if d.IsHouseCall {
		return d.Address
	}
	return t.BusinessAddress
}

// CustomerConfirmation carries the confirmation code the customer must enter
// back on the site.
func (t Templates) CustomerConfirmation(d *domain.Draft, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hey %s! Your %s appointment is booked!\n\n", d.Name, d.Cut)
	fmt.Fprintf(&b, "- Date: %s %s at %s\n", d.Day, d.Date, d.Time)
	fmt.Fprintf(&b, "- Location: %s\n\n", t.displayAddress(d))
	fmt.Fprintf(&b, "Confirmation Code: %s\n\n", code)
	b.WriteString("Please enter this code on the website to confirm your booking.\n\n")
	fmt.Fprintf(&b, "Thank you for choosing Playday Cuts! Text %s for questions.", t.BusinessPhone)
	return b.String()
}

// BusinessNotification tells the business about a confirmed booking.
func (t Templates) BusinessNotification(d *domain.Draft, bookedAt time.Time) string {
	var b strings.Builder
	b.WriteString("NEW APPOINTMENT BOOKING\n\n")
	fmt.Fprintf(&b, "- Customer: %s\n", d.Name)
	fmt.Fprintf(&b, "- Phone: %s\n", d.Phone)
	fmt.Fprintf(&b, "- Service: %s\n", d.Cut)
	fmt.Fprintf(&b, "- Date: %s %s\n", d.Day, d.Date)
	fmt.Fprintf(&b, "- Time: %s\n", d.Time)
	if addr := t.displayAddress(d); addr != "" {
		fmt.Fprintf(&b, "- Location: %s\n", addr)
	}
	fmt.Fprintf(&b, "\n- Booked at: %s", bookedAt.Format("1/2/2006 3:04:05 PM"))
	return b.String()
}

// CancellationNotice tells the business a booking was cancelled.
func (t Templates) CancellationNotice(d *domain.Draft, cancelledAt time.Time) string {
	var b strings.Builder
	b.WriteString("APPOINTMENT CANCELLED\n\n")
	fmt.Fprintf(&b, "- Customer: %s\n", d.Name)
	fmt.Fprintf(&b, "- Phone: %s\n", d.Phone)
	fmt.Fprintf(&b, "- Service: %s\n", d.Cut)
	fmt.Fprintf(&b, "- Date: %s %s\n", d.Day, d.Date)
	fmt.Fprintf(&b, "- Time: %s\n", d.Time)
	fmt.Fprintf(&b, "- Location: %s\n", d.LocationLabel())
	if addr := t.displayAddress(d); addr != "" {
		fmt.Fprintf(&b, "- Address: %s\n", addr)
	}
	fmt.Fprintf(&b, "\n- Cancelled at: %s", cancelledAt.Format("1/2/2006 3:04:05 PM"))
	return b.String()
}
