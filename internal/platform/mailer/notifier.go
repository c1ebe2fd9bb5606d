package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playdaycuts/booking-api/internal/domain"
)

// Notifier renders and sends maintainer-facing emails. All mail goes to a
// single configured address; customers are only ever contacted over SMS.
type Notifier struct {
	svc Service
	to  string
	now func() time.Time
}

func NewNotifier(svc Service, maintainerEmail string) *Notifier {
	return &Notifier{svc: svc, to: maintainerEmail, now: time.Now}
}

func draftDetails(d *domain.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Name: %s\n", d.Name)
	fmt.Fprintf(&b, "- Phone: %s\n", d.Phone)
	fmt.Fprintf(&b, "- Service: %s\n", d.Cut)
	fmt.Fprintf(&b, "- Day: %s %s\n", d.Day, d.Date)
	fmt.Fprintf(&b, "- Time: %s\n", d.Time)
	fmt.Fprintf(&b, "- Location: %s\n", d.LocationLabel())
	if d.IsHouseCall && d.Address != "" {
		fmt.Fprintf(&b, "- Address: %s\n", d.Address)
	}
	return b.String()
}

func htmlify(text string) string {
	return strings.ReplaceAll(text, "\n", "<br>")
}

// BookingReminder mirrors the SMS business notification over email, in case
// the maintainer's phone misses the text.
func (n *Notifier) BookingReminder(ctx context.Context, d *domain.Draft) error {
	subject := "New Appointment Booking Reminder"
	var b strings.Builder
	b.WriteString("New Appointment Booked!\n\nCustomer Details:\n")
	b.WriteString(draftDetails(d))
	b.WriteString("\nThe customer has been sent an SMS confirmation.\n\n")
	fmt.Fprintf(&b, "Timestamp: %s\nAutomated Message", n.now().UTC().Format(time.RFC3339))

	_, err := n.svc.Send(ctx, n.to, subject, b.String(), htmlify(b.String()))
	return err
}

// SMSFailureAlert fires when the customer confirmation text could not be
// delivered. The maintainer has to reach the customer by hand.
func (n *Notifier) SMSFailureAlert(ctx context.Context, d *domain.Draft, smsErr string) error {
	subject := "SMS Notification Failed - Manual Follow-up Required"
	var b strings.Builder
	b.WriteString("A customer tried to book an appointment but the SMS confirmation failed to send.\n\nCustomer Details:\n")
	b.WriteString(draftDetails(d))
	fmt.Fprintf(&b, "\nSMS Error Details:\n%s\n", smsErr)
	b.WriteString("\nPlease contact the customer directly to confirm their appointment.\n\nAutomated Message")

	_, err := n.svc.Send(ctx, n.to, subject, b.String(), htmlify(b.String()))
	return err
}

// GeneralNotification is a passthrough for one-off operational messages.
func (n *Notifier) GeneralNotification(ctx context.Context, subject, message string) error {
	_, err := n.svc.Send(ctx, n.to, subject, message, htmlify(message))
	return err
}
