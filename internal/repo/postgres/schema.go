package postgres

import (
	"context"
	"time"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		cut VARCHAR(50) NOT NULL,
		day VARCHAR(20) NOT NULL,
		date VARCHAR(20) NOT NULL,
		time VARCHAR(20) NOT NULL,
		location VARCHAR(200) NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		confirmation_code VARCHAR(5) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_date_time ON appointments(date, time)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_confirmation_code ON appointments(confirmation_code)`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		key TEXT PRIMARY KEY,
		count INT NOT NULL DEFAULT 0,
		window_start TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}

// Init creates the appointments table and its indexes when missing.
func Init(ctx context.Context, db db) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
