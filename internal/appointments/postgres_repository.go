package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// appointmentsDB is the slice of pgx used by the repository. Narrow so tests
// can substitute pgxmock.
type appointmentsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db appointmentsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db appointmentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new appointment row.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	if err := appt.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO appointments (id, provider_id, provider_name, service_name, client_name, start_time, status, price, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		appt.ID,
		appt.ProviderID,
		appt.ProviderName,
		appt.ServiceName,
		appt.ClientName,
		appt.StartTime,
		appt.Status,
		appt.Price,
		appt.UserID,
	).Scan(&createdAt); err != nil {
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	appt.CreatedAt = createdAt
	return nil
}

// GetByID fetches an appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := selectColumns + ` WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// ListByUser returns the appointments booked by a user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Appointment, error) {
	query := selectColumns + ` WHERE user_id = $1 ORDER BY created_at DESC`
	return r.listQuery(ctx, query, userID)
}

// ListByProvider returns the appointments held with a provider, newest first.
func (r *PostgresRepository) ListByProvider(ctx context.Context, providerID string) ([]*Appointment, error) {
	query := selectColumns + ` WHERE provider_id = $1 ORDER BY created_at DESC`
	return r.listQuery(ctx, query, providerID)
}

// UpdateStatus changes the status of an existing appointment.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
	default:
		return ErrInvalidStatus
	}
	tag, err := r.db.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, provider_id, provider_name, service_name, client_name, start_time, status, price, COALESCE(user_id, ''), created_at
	FROM appointments`

func (r *PostgresRepository) listQuery(ctx context.Context, query string, arg any) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate failed: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	if err := row.Scan(
		&appt.ID,
		&appt.ProviderID,
		&appt.ProviderName,
		&appt.ServiceName,
		&appt.ClientName,
		&appt.StartTime,
		&appt.Status,
		&appt.Price,
		&appt.UserID,
		&appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}
