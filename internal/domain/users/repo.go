package users

import "context"

// UserRepository stores users. Lookups that match nothing return an error
// wrapping apierror.ErrNotFound; unique collisions return *DuplicateError.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*User, error)
	// Delete removes the user and every row the user owns.
	Delete(ctx context.Context, id int64) error
}
