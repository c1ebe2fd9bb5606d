// Package confirm issues and verifies the short confirmation codes a
// customer reads back from SMS before an appointment is persisted.
package confirm

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/playdaycuts/booking-api/internal/domain"
)

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// maxIssueAttempts bounds the regenerate-on-collision loop. With 26^5 codes
// against a 24-hour lookback this effectively never trips.
const maxIssueAttempts = 5

// Store is the slice of the appointment store the issuer needs for
// uniqueness checks. Lookups are scoped to the lookback window on the store
// side.
type Store interface {
	FindByConfirmationCode(ctx context.Context, code string) (*domain.Appointment, error)
}

// Issuer generates codes and checks them against active records. Generation
// is a uniform choice over 26 letters per position; collision risk is
// handled by the uniqueness check, not by generator strength.
type Issuer struct {
	store  Store
	length int
	ttl    time.Duration

	intn func(int) int
	now  func() time.Time
}

func NewIssuer(store Store, length int, ttl time.Duration) *Issuer {
	return &Issuer{
		store:  store,
		length: length,
		ttl:    ttl,
		intn:   rand.Intn,
		now:    time.Now,
	}
}

// Generate produces a random uppercase code of the configured length. No
// uniqueness guarantee; use Issue for that.
func (i *Issuer) Generate() string {
	var b strings.Builder
	b.Grow(i.length)
	for n := 0; n < i.length; n++ {
		b.WriteByte(letters[i.intn(len(letters))])
	}
	return b.String()
}

// IsWellFormed reports whether code is exactly length uppercase letters.
func (i *Issuer) IsWellFormed(code string) bool {
	if len(code) != i.length {
		return false
	}
	for n := 0; n < len(code); n++ {
		if code[n] < 'A' || code[n] > 'Z' {
			return false
		}
	}
	return true
}

// IsUnique reports whether no active record inside the lookback window holds
// this code.
func (i *Issuer) IsUnique(ctx context.Context, code string) (bool, error) {
	existing, err := i.store.FindByConfirmationCode(ctx, code)
	if err != nil {
		return false, fmt.Errorf("confirmation code lookup: %w", err)
	}
	return existing == nil, nil
}

// Issue generates a code, retrying on collision, and returns it as a Pending
// confirmation whose validity window starts now.
func (i *Issuer) Issue(ctx context.Context) (*Pending, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code := i.Generate()
		unique, err := i.IsUnique(ctx, code)
		if err != nil {
			return nil, err
		}
		if unique {
			return &Pending{Code: code, IssuedAt: i.now(), ttl: i.ttl}, nil
		}
	}
	return nil, domain.ErrDuplicateCode
}

// Pending is a provisionally held confirmation: the code the customer must
// enter, and the window inside which it counts.
type Pending struct {
	Code     string
	IssuedAt time.Time

	ttl time.Duration
}

// NewPending rebuilds a pending confirmation from stored parts, e.g. when a
// staged draft is resumed.
func NewPending(code string, issuedAt time.Time, ttl time.Duration) *Pending {
	return &Pending{Code: code, IssuedAt: issuedAt, ttl: ttl}
}

func (p *Pending) ExpiresAt() time.Time {
	return p.IssuedAt.Add(p.ttl)
}

func (p *Pending) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt())
}

// Verify checks an entered code. Entry is case-insensitive; comparison is
// exact after uppercasing. A correct code past the validity window is
// ErrCodeExpired, never a success.
func (p *Pending) Verify(entered string, now time.Time) error {
	if !strings.EqualFold(strings.TrimSpace(entered), p.Code) {
		return domain.ErrCodeMismatch
	}
	if p.Expired(now) {
		return domain.ErrCodeExpired
	}
	return nil
}
