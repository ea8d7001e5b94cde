package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Schema creates the bookings table and the unique payment_id index.
const Schema = `
CREATE TABLE IF NOT EXISTS paid_bookings (
	booking_reference TEXT PRIMARY KEY,
	payment_id        TEXT NOT NULL,
	transaction_id    TEXT NOT NULL,
	amount            NUMERIC(12,2) NOT NULL,
	currency          TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'confirmed',
	fee               NUMERIC(12,2) NOT NULL,
	doctor_id         TEXT NOT NULL,
	doctor_name       TEXT NOT NULL,
	doctor_specialty  TEXT NOT NULL DEFAULT '',
	doctor_chamber    TEXT NOT NULL DEFAULT '',
	schedule_date     TEXT NOT NULL,
	schedule_slot     TEXT NOT NULL,
	patient_name      TEXT NOT NULL,
	patient_age       INTEGER NOT NULL,
	patient_gender    TEXT NOT NULL,
	patient_phone     TEXT NOT NULL,
	division          TEXT NOT NULL DEFAULT '',
	district          TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	problem           TEXT NOT NULL DEFAULT '',
	verified_at       TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS paid_bookings_payment_id_key ON paid_bookings (payment_id);
`

const bookingColumns = `booking_reference, payment_id, transaction_id, amount, currency, status, fee,
	doctor_id, doctor_name, doctor_specialty, doctor_chamber, schedule_date, schedule_slot,
	patient_name, patient_age, patient_gender, patient_phone, division, district, address, problem,
	verified_at, created_at`

// PostgresStore relies on the unique index on payment_id; inserts use
// ON CONFLICT DO NOTHING and fall back to a re-read.
type PostgresStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, nowFunc: time.Now}
}

// Migrate applies Schema. It is safe to run on every start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate paid_bookings: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, b PaidBooking) (*PaidBooking, bool, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.nowFunc()
	}
	query := `INSERT INTO paid_bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT DO NOTHING
		RETURNING ` + bookingColumns

	row := s.db.QueryRowContext(ctx, query,
		b.BookingReference, b.PaymentID, b.TransactionID, b.Amount, b.Currency, string(b.Status), b.Fee,
		b.DoctorID, b.DoctorName, b.DoctorSpecialty, b.DoctorChamber, b.ScheduleDate, b.ScheduleSlot,
		b.PatientName, b.PatientAge, b.PatientGender, b.PatientPhone, b.Division, b.District, b.Address, b.Problem,
		b.VerifiedAt, b.CreatedAt,
	)
	stored, err := scanBooking(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert booking: %w", err)
	}

	existing, err := s.FindByPaymentID(ctx, b.PaymentID)
	if err != nil {
		return nil, false, fmt.Errorf("re-read after conflict: %w", err)
	}
	if existing == nil {
		return nil, false, errReferenceCollision(b.BookingReference)
	}
	return existing, false, nil
}

func (s *PostgresStore) FindByPaymentID(ctx context.Context, paymentID string) (*PaidBooking, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM paid_bookings
		WHERE payment_id = $1 ORDER BY created_at, booking_reference LIMIT 1`, paymentID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find booking by payment: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) FindByReference(ctx context.Context, reference string) (*PaidBooking, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM paid_bookings WHERE booking_reference = $1`, reference)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find booking by reference: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListByPaymentID(ctx context.Context, paymentID string) ([]PaidBooking, error) {
	return s.list(ctx, `SELECT `+bookingColumns+` FROM paid_bookings
		WHERE payment_id = $1 ORDER BY created_at, booking_reference`, paymentID)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]PaidBooking, error) {
	return s.list(ctx, `SELECT `+bookingColumns+` FROM paid_bookings ORDER BY created_at, booking_reference`)
}

func (s *PostgresStore) Delete(ctx context.Context, reference string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM paid_bookings WHERE booking_reference = $1`, reference)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]PaidBooking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []PaidBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(r rowScanner) (*PaidBooking, error) {
	var (
		b      PaidBooking
		status string
	)
	err := r.Scan(
		&b.BookingReference, &b.PaymentID, &b.TransactionID, &b.Amount, &b.Currency, &status, &b.Fee,
		&b.DoctorID, &b.DoctorName, &b.DoctorSpecialty, &b.DoctorChamber, &b.ScheduleDate, &b.ScheduleSlot,
		&b.PatientName, &b.PatientAge, &b.PatientGender, &b.PatientPhone, &b.Division, &b.District, &b.Address, &b.Problem,
		&b.VerifiedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}
