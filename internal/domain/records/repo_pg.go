package records

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

type recordRepoPG struct{ pool queryable }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

const recordCols = `id, user_id, file_name, file_type, file_size, file_url, record_type, source, created_at, updated_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var r MedicalRecord
	err := row.Scan(&r.ID, &r.UserID, &r.FileName, &r.FileType, &r.FileSize, &r.FileURL,
		&r.RecordType, &r.Source, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO medical_records (user_id, file_name, file_type, file_size, file_url, record_type, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		rec.UserID, rec.FileName, rec.FileType, rec.FileSize, rec.FileURL, rec.RecordType, rec.Source,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if _, ok := db.ForeignKeyViolation(err); ok {
		return fmt.Errorf("user %d: %w", rec.UserID, apierror.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id int64) (*MedicalRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("medical record %d: %w", id, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select medical record: %w", err)
	}
	return rec, nil
}

func (r *recordRepoPG) ListByUser(ctx context.Context, userID int64) ([]*MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM medical_records WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	defer rows.Close()

	out := []*MedicalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medical record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recordRepoPG) Delete(ctx context.Context, id int64) (*MedicalRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `DELETE FROM medical_records WHERE id = $1 RETURNING `+recordCols, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("medical record %d: %w", id, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete medical record: %w", err)
	}
	return rec, nil
}
