package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/events"
	"github.com/medisight/portal/internal/platform/identity"
)

const (
	msgInvalidUser        = "Invalid user data"
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
)

type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	verifier identity.Verifier
	pub      events.Publisher
}

func NewService(users UserRepository, hasher PasswordHasher) *Service {
	return &Service{users: users, hasher: hasher, pub: events.Nop{}}
}

// SetIdentityVerifier enables login with identity provider ID tokens.
func (s *Service) SetIdentityVerifier(v identity.Verifier) {
	s.verifier = v
}

// SetPublisher attaches the publisher that receives user.registered events.
func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) Register(ctx context.Context, in InsertUser) (*User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apierror.Validation(msgInvalidUser,
			apierror.FieldError{Field: "password", Message: "must be at most 72 bytes"})
	}
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     in.Username,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		PhotoURL:     in.PhotoURL,
		FirebaseUID:  in.FirebaseUID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		var dup *DuplicateError
		if errors.As(err, &dup) {
			e := apierror.Conflict("User already exists", err)
			e.Fields = []apierror.FieldError{{Field: dup.Field, Message: "is already taken"}}
			return nil, e
		}
		return nil, err
	}

	if ev, err := events.New(events.UserRegistered, events.UserTopic("users", u.ID), "user", u.ID, u.ID, u); err == nil {
		_ = s.pub.Publish(ctx, ev)
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, apierror.ErrNotFound) {
		if b, ok := s.hasher.(interface{ Burn(string) }); ok {
			b.Burn(password)
		}
		return nil, apierror.Auth(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, apierror.Auth(msgInvalidCredentials)
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil, apierror.NotFound(msgUserNotFound)
	}
	return u, err
}

// LoginWithFirebase verifies an identity provider ID token and returns the
// user linked to its subject.
func (s *Service) LoginWithFirebase(ctx context.Context, idToken string) (*User, error) {
	if s.verifier == nil {
		return nil, apierror.Auth("Identity provider login is not enabled")
	}
	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, apierror.Auth(msgInvalidCredentials)
		}
		return nil, apierror.Upstream("Identity provider unavailable", err)
	}

	u, err := s.users.GetByFirebaseUID(ctx, id.UID)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil, apierror.Auth(msgInvalidCredentials)
	}
	return u, err
}

// Delete removes a user together with everything the user owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, apierror.ErrNotFound) {
		return apierror.NotFound(msgUserNotFound)
	}
	return err
}
