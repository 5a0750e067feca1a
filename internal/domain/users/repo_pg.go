package users

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

type userRepoPG struct{ pool queryable }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

const userCols = `id, username, password_hash, display_name, email, photo_url, firebase_uid, created_at, updated_at`

// uniqueFields maps constraint names to the JSON field they guard.
var uniqueFields = map[string]string{
	"users_username_key":     "username",
	"users_email_key":        "email",
	"users_firebase_uid_key": "firebaseUID",
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Email,
		&u.PhotoURL, &u.FirebaseUID, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, display_name, email, photo_url, firebase_uid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		u.Username, u.PasswordHash, u.DisplayName, u.Email, u.PhotoURL, u.FirebaseUID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if constraint, ok := db.UniqueViolation(err); ok {
		field, known := uniqueFields[constraint]
		if !known {
			field = "username"
		}
		return &DuplicateError{Field: field}
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) getOne(ctx context.Context, where string, arg interface{}) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE `+where+` = $1`, arg))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("user %s=%v: %w", where, arg, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *userRepoPG) GetByFirebaseUID(ctx context.Context, uid string) (*User, error) {
	return r.getOne(ctx, "firebase_uid", uid)
}

// Delete relies on ON DELETE CASCADE for the user's records, results,
// appointments and messages.
func (r *userRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, apierror.ErrNotFound)
	}
	return nil
}
