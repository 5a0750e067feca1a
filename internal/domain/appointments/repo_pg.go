package appointments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type appointmentRepoPG struct{ pool queryable }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const appointmentCols = `id, user_id, doctor_id, appointment_date, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.DoctorID, &a.AppointmentDate, &a.Status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (user_id, doctor_id, appointment_date, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.UserID, a.DoctorID, a.AppointmentDate, a.Status, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if _, ok := db.ForeignKeyViolation(err); ok {
		return fmt.Errorf("user %d: %w", a.UserID, apierror.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("appointment %d: %w", id, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) ListByUser(ctx context.Context, userID int64) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update is a single statement, so concurrent patches are last-write-wins
// per column.
func (r *appointmentRepoPG) Update(ctx context.Context, id int64, patch AppointmentPatch) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = COALESCE($2, status), notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $1
		RETURNING `+appointmentCols,
		id, patch.Status, patch.Notes))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("appointment %d: %w", id, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return a, nil
}
