package screening

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

type resultRepoPG struct{ pool queryable }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository { return &resultRepoPG{pool: pool} }

const resultCols = `id, user_id, screening_type, result, confidence, result_data, created_at`

func scanResult(row pgx.Row) (*ScreeningResult, error) {
	var r ScreeningResult
	var data []byte
	err := row.Scan(&r.ID, &r.UserID, &r.ScreeningType, &r.Result, &r.Confidence, &data, &r.CreatedAt)
	r.ResultData = data
	return &r, err
}

func (r *resultRepoPG) Create(ctx context.Context, res *ScreeningResult) error {
	// A nil []byte is bound as SQL NULL.
	var data []byte
	if len(res.ResultData) > 0 {
		data = res.ResultData
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO screening_results (user_id, screening_type, result, confidence, result_data)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING id, created_at`,
		res.UserID, res.ScreeningType, res.Result, res.Confidence, data,
	).Scan(&res.ID, &res.CreatedAt)
	if _, ok := db.ForeignKeyViolation(err); ok {
		return fmt.Errorf("user %d: %w", res.UserID, apierror.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("insert screening result: %w", err)
	}
	return nil
}

func (r *resultRepoPG) GetByID(ctx context.Context, id int64) (*ScreeningResult, error) {
	res, err := scanResult(r.pool.QueryRow(ctx, `SELECT `+resultCols+` FROM screening_results WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("screening result %d: %w", id, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select screening result: %w", err)
	}
	return res, nil
}

func (r *resultRepoPG) ListByUser(ctx context.Context, userID int64) ([]*ScreeningResult, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultCols+` FROM screening_results WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list screening results: %w", err)
	}
	defer rows.Close()

	out := []*ScreeningResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screening result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
