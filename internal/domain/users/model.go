package users

import (
	"time"

	"github.com/medisight/portal/internal/platform/apierror"
)

// User is a portal account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  *string   `json:"displayName"`
	Email        string    `json:"email"`
	PhotoURL     *string   `json:"photoURL"`
	FirebaseUID  *string   `json:"firebaseUID"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// InsertUser is the registration payload.
type InsertUser struct {
	Username    string  `json:"username" validate:"required,notblank,max=64"`
	Password    string  `json:"password" validate:"required,max=72"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=128"`
	Email       string  `json:"email" validate:"required,email"`
	PhotoURL    *string `json:"photoURL" validate:"omitempty,url"`
	FirebaseUID *string `json:"firebaseUID" validate:"omitempty,notblank,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required,notblank"`
}

// DuplicateError reports the unique field a new user collided on.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return e.Field + " already exists" }

func (e *DuplicateError) Unwrap() error { return apierror.ErrConflict }
