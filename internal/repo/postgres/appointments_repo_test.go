package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdaycuts/booking-api/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func appointmentRows(a domain.Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "phone", "cut", "day", "date", "time",
		"location", "address", "notes", "confirmation_code", "status", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.Name, a.Phone, a.Cut, a.Day, a.Date, a.Time,
		a.Location, a.Address, a.Notes, a.ConfirmationCode, a.Status, a.CreatedAt, a.UpdatedAt,
	)
}

func sampleAppointment() domain.Appointment {
	now := time.Date(2025, time.June, 10, 14, 0, 0, 0, time.UTC)
	return domain.Appointment{
		ID:               7,
		Name:             "Alex",
		Phone:            "(555) 123-4567",
		Cut:              "Volume 1 Cut",
		Day:              "Saturday",
		Date:             "6/14",
		Time:             "12:00PM",
		Location:         "At Location",
		ConfirmationCode: "QWXYZ",
		Status:           domain.AppointmentConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestCreateInsertsWhenSlotFree(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)
	a := sampleAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM appointments`).
		WithArgs("6/14", "12:00PM").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(a.Name, a.Phone, a.Cut, a.Day, a.Date, a.Time,
			a.Location, a.Address, a.Notes, a.ConfirmationCode, a.Status).
		WillReturnRows(appointmentRows(a))
	mock.ExpectCommit()
	mock.ExpectRollback()

	created, err := repo.Create(context.Background(), &a)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, "6/14-12:00PM", created.SlotKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)
	a := sampleAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM appointments`).
		WithArgs("6/14", "12:00PM").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &a)
	assert.ErrorIs(t, err, domain.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByConfirmationCode(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)
	a := sampleAppointment()

	mock.ExpectQuery(`SELECT (.+) FROM appointments\s+WHERE confirmation_code=\$1`).
		WithArgs("QWXYZ", pgxmock.AnyArg()).
		WillReturnRows(appointmentRows(a))

	found, err := repo.FindByConfirmationCode(context.Background(), "QWXYZ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "QWXYZ", found.ConfirmationCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByConfirmationCodeMissReturnsNil(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM appointments\s+WHERE confirmation_code=\$1`).
		WithArgs("NOPES", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "phone", "cut", "day", "date", "time",
			"location", "address", "notes", "confirmation_code", "status", "created_at", "updated_at",
		}))

	found, err := repo.FindByConfirmationCode(context.Background(), "NOPES")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestBookedSlotKeys(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)

	mock.ExpectQuery(`SELECT date, time FROM appointments`).
		WillReturnRows(pgxmock.NewRows([]string{"date", "time"}).
			AddRow("6/14", "12:00PM").
			AddRow("6/10", "4:00PM"))

	booked, err := repo.BookedSlotKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, booked, 2)
	_, ok := booked["6/14-12:00PM"]
	assert.True(t, ok)
}

func TestCountActiveAt(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM appointments WHERE date=\$1 AND time=\$2`).
		WithArgs("6/14", "12:00PM").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountActiveAt(context.Background(), "6/14", "12:00PM")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCancel(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)
	a := sampleAppointment()
	a.Status = domain.AppointmentCancelled

	mock.ExpectQuery(`UPDATE appointments SET status='cancelled'`).
		WithArgs(int64(7)).
		WillReturnRows(appointmentRows(a))

	cancelled, err := repo.Cancel(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	assert.Equal(t, domain.AppointmentCancelled, cancelled.Status)
}

func TestCancelMissReturnsNil(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)

	mock.ExpectQuery(`UPDATE appointments SET status='cancelled'`).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "phone", "cut", "day", "date", "time",
			"location", "address", "notes", "confirmation_code", "status", "created_at", "updated_at",
		}))

	cancelled, err := repo.Cancel(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, cancelled)
}

func TestDeleteOlderThan(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock, 24*time.Hour)

	mock.ExpectExec(`DELETE FROM appointments WHERE created_at`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteOlderThan(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestInitRunsAllStatements(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS appointments`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_appointments_date_time`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_appointments_status`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_appointments_confirmation_code`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS rate_limits`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Init(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
