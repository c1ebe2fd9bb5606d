package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/playdaycuts/booking-api/internal/domain"
)

// db is the slice of pgxpool.Pool the repo uses. Satisfied by pgxmock in
// tests.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AppointmentRepo interface {
	Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error)
	List(ctx context.Context, limit, offset int) ([]domain.Appointment, error)
	BookedSlotKeys(ctx context.Context) (map[string]struct{}, error)
	FindByConfirmationCode(ctx context.Context, code string) (*domain.Appointment, error)
	CountActiveAt(ctx context.Context, date, timeLabel string) (int, error)
	Cancel(ctx context.Context, id int64) (*domain.Appointment, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// AppointmentRepoImpl persists appointments. The code lookback window bounds
// FindByConfirmationCode so old codes can be reissued.
type AppointmentRepoImpl struct {
	db           db
	codeLookback time.Duration
}

func NewAppointmentRepo(db db, codeLookback time.Duration) *AppointmentRepoImpl {
	if codeLookback <= 0 {
		codeLookback = 24 * time.Hour
	}
	return &AppointmentRepoImpl{db: db, codeLookback: codeLookback}
}

const appointmentCols = `id, name, phone, cut, day, date, time,
location, address, notes, confirmation_code, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(
		&a.ID, &a.Name, &a.Phone, &a.Cut, &a.Day, &a.Date, &a.Time,
		&a.Location, &a.Address, &a.Notes, &a.ConfirmationCode, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts the appointment after verifying the slot is still free.
// The check and the insert run in one transaction with the matching rows
// locked, so two submissions racing for the same slot cannot both land.
func (r *AppointmentRepoImpl) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Postgres rejects FOR UPDATE around an aggregate, so the check selects
	// and locks the matching ids and tests for any.
	const checkQ = `SELECT id FROM appointments
WHERE date=$1 AND time=$2 AND status <> 'cancelled' FOR UPDATE`

	rows, err := tx.Query(ctx, checkQ, a.Date, a.Time)
	if err != nil {
		return nil, err
	}
	taken := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("slot %s: %w", domain.SlotKey(a.Date, a.Time), domain.ErrSlotTaken)
	}

	const insertQ = `INSERT INTO appointments (
    name, phone, cut, day, date, time, location, address, notes, confirmation_code, status
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  RETURNING ` + appointmentCols

	created, err := scanAppointment(tx.QueryRow(ctx, insertQ,
		a.Name, a.Phone, a.Cut, a.Day, a.Date, a.Time,
		a.Location, a.Address, a.Notes, a.ConfirmationCode, a.Status,
	))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *AppointmentRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + appointmentCols + ` FROM appointments ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	as := make([]domain.Appointment, 0, limit)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		as = append(as, *a)
	}
	return as, rows.Err()
}

// BookedSlotKeys returns the occupied "{M/D}-{time}" keys for non-cancelled
// appointments, the shape the availability calculator consumes.
func (r *AppointmentRepoImpl) BookedSlotKeys(ctx context.Context) (map[string]struct{}, error) {
	const q = `SELECT date, time FROM appointments WHERE status <> 'cancelled'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := map[string]struct{}{}
	for rows.Next() {
		var date, timeLabel string
		if err := rows.Scan(&date, &timeLabel); err != nil {
			return nil, err
		}
		booked[domain.SlotKey(date, timeLabel)] = struct{}{}
	}
	return booked, rows.Err()
}

// FindByConfirmationCode looks a code up within the lookback window, skipping
// cancelled appointments. Returns nil when no row matches.
func (r *AppointmentRepoImpl) FindByConfirmationCode(ctx context.Context, code string) (*domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments
WHERE confirmation_code=$1 AND status <> 'cancelled' AND created_at > $2
ORDER BY created_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.db.QueryRow(ctx, q, code, time.Now().Add(-r.codeLookback)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AppointmentRepoImpl) CountActiveAt(ctx context.Context, date, timeLabel string) (int, error) {
	const q = `SELECT count(*) FROM appointments WHERE date=$1 AND time=$2 AND status <> 'cancelled'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, q, date, timeLabel).Scan(&n)
	return n, err
}

// Cancel flips an active appointment to cancelled and returns the row so the
// caller can notify about the freed slot. Returns nil when no active row
// matches.
func (r *AppointmentRepoImpl) Cancel(ctx context.Context, id int64) (*domain.Appointment, error) {
	const q = `UPDATE appointments SET status='cancelled', updated_at=now()
WHERE id=$1 AND status <> 'cancelled'
RETURNING ` + appointmentCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.db.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// DeleteOlderThan drops appointments past the retention window. Date strings
// carry no year, so retention keys off created_at.
func (r *AppointmentRepoImpl) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	const q = `DELETE FROM appointments WHERE created_at < $1`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ct, err := r.db.Exec(ctx, q, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

var _ AppointmentRepo = (*AppointmentRepoImpl)(nil)
