package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Business-rule rejections, distinguishable from generic transport failures
// so the caller can present a specific message.
var (
	// ErrSlotTaken means the exact (date, time) pair is already held by a
	// non-cancelled appointment.
	ErrSlotTaken = errors.New("time slot is already booked")

	// ErrDuplicateCode means a freshly generated confirmation code collided
	// with an active one inside the lookback window.
	ErrDuplicateCode = errors.New("confirmation code already in use")

	// ErrCodeExpired means the entered code matched but its validity window
	// had elapsed; the user must restart from submission.
	ErrCodeExpired = errors.New("confirmation code has expired")

	// ErrCodeMismatch means the entered code did not match.
	ErrCodeMismatch = errors.New("confirmation code does not match")

	// ErrOutsideServiceArea means the house-call address failed the distance
	// eligibility check.
	ErrOutsideServiceArea = errors.New("address is outside the service area")

	// ErrNotConfigured means a required external-service credential or
	// connection string is absent.
	ErrNotConfigured = errors.New("service not configured")
)

// ValidationError is a client-local rejection of an incomplete or ill-formed
// draft. No network call is made when one of these is returned.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid draft (%s): %s", strings.Join(e.Fields, ", "), e.Reason)
	}
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}
