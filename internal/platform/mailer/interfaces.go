// Package mailer sends the operational emails the booking flow produces:
// new-booking reminders to the maintainer and alerts when SMS delivery fails.
package mailer

import "context"

type Service interface {
	Send(ctx context.Context, toEmail, subject, text, html string) (string, error)
}

// DevMailer logs instead of sending, for local development.
type DevMailer struct {
	Logf func(format string, args ...any)
}

func (d DevMailer) Send(_ context.Context, toEmail, subject, text, _ string) (string, error) {
	if d.Logf != nil {
		d.Logf("dev email to %s: %s\n%s", toEmail, subject, text)
	}
	return "dev", nil
}

var _ Service = DevMailer{}
