package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/acolhe/clinicd_backend/internal/domain"
)

// Postgres implements Store on a pgx pool. Mutations that need the
// double-booking guarantee run in a transaction holding a per-psychologist
// advisory lock, so the overlap read and the write are serialized against
// competing bookings for the same psychologist.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

const appointmentColumns = `id, psychologist_id, patient_id, clinic_id, scheduled_at,
	duration_minutes, modality, status, notes, payment_id, clinic_managed,
	version, created_at, updated_at`

// execer is satisfied by both the pool and a transaction, so the insert
// helpers serve standalone and transactional writes alike.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Postgres) CreateAppointment(ctx context.Context, a *domain.Appointment) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockPsychologist(ctx, tx, a.PsychologistID); err != nil {
			return err
		}
		if a.OccupiesSlot() {
			if err := checkOverlap(ctx, tx, a); err != nil {
				return err
			}
		}
		return insertAppointment(ctx, tx, a)
	})
}

// CreateAppointmentWithPayment books the appointment and opens its payment
// in one transaction. A failed payment insert rolls back the booking, so no
// appointment ever persists pointing at a payment that was never created.
func (s *Postgres) CreateAppointmentWithPayment(ctx context.Context, a *domain.Appointment, p *domain.Payment) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockPsychologist(ctx, tx, a.PsychologistID); err != nil {
			return err
		}
		if a.OccupiesSlot() {
			if err := checkOverlap(ctx, tx, a); err != nil {
				return err
			}
		}
		if err := insertAppointment(ctx, tx, a); err != nil {
			return err
		}
		return insertPayment(ctx, tx, p)
	})
}

func insertAppointment(ctx context.Context, db execer, a *domain.Appointment) error {
	_, err := db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.PsychologistID, a.PatientID, a.ClinicID, a.ScheduledAt,
		a.DurationMinutes, a.Modality, a.Status, a.Notes, a.PaymentID,
		a.ClinicManaged, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *Postgres) GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (s *Postgres) UpdateAppointment(ctx context.Context, a *domain.Appointment, expectedVersion int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockPsychologist(ctx, tx, a.PsychologistID); err != nil {
			return err
		}
		if a.OccupiesSlot() {
			if err := checkOverlap(ctx, tx, a); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE appointments SET
				psychologist_id = $2, patient_id = $3, clinic_id = $4,
				scheduled_at = $5, duration_minutes = $6, modality = $7,
				status = $8, notes = $9, payment_id = $10, clinic_managed = $11,
				version = version + 1, updated_at = $12
			WHERE id = $1 AND version = $13`,
			a.ID, a.PsychologistID, a.PatientID, a.ClinicID, a.ScheduledAt,
			a.DurationMinutes, a.Modality, a.Status, a.Notes, a.PaymentID,
			a.ClinicManaged, a.UpdatedAt, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return staleOrMissing(ctx, tx, "appointments", a.ID)
		}
		a.Version = expectedVersion + 1
		return nil
	})
}

func (s *Postgres) ListAppointments(ctx context.Context, f AppointmentFilter) ([]*domain.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.PsychologistID != nil {
		add("psychologist_id = $%d", *f.PsychologistID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.ClinicID != nil {
		add("clinic_id = $%d", *f.ClinicID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.From != nil {
		add("scheduled_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("scheduled_at <= $%d", *f.To)
	}

	q := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY scheduled_at"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func lockPsychologist(ctx context.Context, tx pgx.Tx, psychologistID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, psychologistID)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func checkOverlap(ctx context.Context, tx pgx.Tx, a *domain.Appointment) error {
	start, end := a.Window()
	var conflictID uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id FROM appointments
		WHERE psychologist_id = $1
		  AND id <> $2
		  AND status <> 'cancelled'
		  AND scheduled_at < $4
		  AND scheduled_at + make_interval(mins => duration_minutes) > $3
		LIMIT 1`,
		a.PsychologistID, a.ID, start, end,
	).Scan(&conflictID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("overlap check: %w", err)
	}
	return &domain.DoubleBookingError{
		PsychologistID:           a.PsychologistID,
		ConflictingAppointmentID: conflictID,
	}
}

// staleOrMissing disambiguates a zero-row UPDATE: the row is gone, or the
// version moved under us.
func staleOrMissing(ctx context.Context, tx pgx.Tx, table string, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("existence check: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return ErrVersionMismatch
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(
		&a.ID, &a.PsychologistID, &a.PatientID, &a.ClinicID, &a.ScheduledAt,
		&a.DurationMinutes, &a.Modality, &a.Status, &a.Notes, &a.PaymentID,
		&a.ClinicManaged, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &a, nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

const paymentSelectColumns = `id, appointment_id, patient_id, psychologist_id, clinic_id,
	final_value::text, clinic_amount::text, psychologist_amount::text,
	clinic_share_percent::text, status, method, cancel_reason,
	version, created_at, updated_at`

func (s *Postgres) CreatePayment(ctx context.Context, p *domain.Payment) error {
	return insertPayment(ctx, s.pool, p)
}

func insertPayment(ctx context.Context, db execer, p *domain.Payment) error {
	_, err := db.Exec(ctx, `
		INSERT INTO payments (
			id, appointment_id, patient_id, psychologist_id, clinic_id,
			final_value, clinic_amount, psychologist_amount, clinic_share_percent,
			status, method, cancel_reason, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		p.ID, p.AppointmentID, p.PatientID, p.PsychologistID, p.ClinicID,
		p.FinalValue.String(), p.ClinicAmount.String(), p.PsychologistAmount.String(),
		p.ClinicSharePercent.String(), p.Status, p.Method, p.CancelReason,
		p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Postgres) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+paymentSelectColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *Postgres) GetPaymentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Payment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+paymentSelectColumns+` FROM payments WHERE appointment_id = $1`, appointmentID)
	return scanPayment(row)
}

func (s *Postgres) UpdatePayment(ctx context.Context, p *domain.Payment, expectedVersion int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE payments SET
				status = $2, method = $3, cancel_reason = $4,
				version = version + 1, updated_at = $5
			WHERE id = $1 AND version = $6`,
			p.ID, p.Status, p.Method, p.CancelReason, p.UpdatedAt, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return staleOrMissing(ctx, tx, "payments", p.ID)
		}
		p.Version = expectedVersion + 1
		return nil
	})
}

func (s *Postgres) ListPayments(ctx context.Context, f PaymentFilter) ([]*domain.Payment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.ClinicID != nil {
		add("clinic_id = $%d", *f.ClinicID)
	}
	if f.PsychologistID != nil {
		add("psychologist_id = $%d", *f.PsychologistID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	q := `SELECT ` + paymentSelectColumns + ` FROM payments`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p                                    domain.Payment
		finalValue, clinicAmt, psychAmt, pct string
	)
	err := row.Scan(
		&p.ID, &p.AppointmentID, &p.PatientID, &p.PsychologistID, &p.ClinicID,
		&finalValue, &clinicAmt, &psychAmt, &pct,
		&p.Status, &p.Method, &p.CancelReason,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	if p.FinalValue, err = decimal.NewFromString(finalValue); err != nil {
		return nil, fmt.Errorf("parse final_value: %w", err)
	}
	if p.ClinicAmount, err = decimal.NewFromString(clinicAmt); err != nil {
		return nil, fmt.Errorf("parse clinic_amount: %w", err)
	}
	if p.PsychologistAmount, err = decimal.NewFromString(psychAmt); err != nil {
		return nil, fmt.Errorf("parse psychologist_amount: %w", err)
	}
	if p.ClinicSharePercent, err = decimal.NewFromString(pct); err != nil {
		return nil, fmt.Errorf("parse clinic_share_percent: %w", err)
	}
	return &p, nil
}
