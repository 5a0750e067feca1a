package chat

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

type messageRepoPG struct{ pool queryable }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository { return &messageRepoPG{pool: pool} }

const messageCols = `id, user_id, sender, content, created_at`

func scanMessage(row pgx.Row) (*ChatMessage, error) {
	var m ChatMessage
	err := row.Scan(&m.ID, &m.UserID, &m.Sender, &m.Content, &m.CreatedAt)
	return &m, err
}

func (r *messageRepoPG) Create(ctx context.Context, m *ChatMessage) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (user_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		m.UserID, m.Sender, m.Content,
	).Scan(&m.ID, &m.CreatedAt)
	if _, ok := db.ForeignKeyViolation(err); ok {
		return fmt.Errorf("user %d: %w", m.UserID, apierror.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *messageRepoPG) GetByID(ctx context.Context, id int64) (*ChatMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageCols+` FROM chat_messages WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("chat message %d: %w", id, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select chat message: %w", err)
	}
	return m, nil
}

func (r *messageRepoPG) ListByUser(ctx context.Context, userID int64) ([]*ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+messageCols+` FROM chat_messages WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	out := []*ChatMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
