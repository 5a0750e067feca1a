// Package identity verifies ID tokens issued by the external identity
// provider and yields the provider's user id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is what a verified token says about its bearer.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Verifier checks an ID token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// FirebaseJWKSURL publishes the keys that sign Firebase Auth ID tokens.
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

type firebaseClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AuthTime      int64  `json:"auth_time"`
}

// FirebaseVerifier validates Firebase Auth ID tokens: RS256 signature,
// issuer and audience bound to the project, unexpired, with a subject.
type FirebaseVerifier struct {
	projectID string
	keys      *KeySet
	now       func() time.Time
}

// NewFirebaseVerifier builds a verifier for projectID using keys.
func NewFirebaseVerifier(projectID string, keys *KeySet) *FirebaseVerifier {
	return &FirebaseVerifier{projectID: projectID, keys: keys, now: time.Now}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no kid header")
			}
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if claims.AuthTime > v.now().Unix() {
		return nil, fmt.Errorf("%w: auth_time in the future", ErrInvalidToken)
	}
	return &Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// StaticVerifier maps fixed tokens to identities. Used in development
// and tests in place of the real provider.
type StaticVerifier map[string]Identity

func (s StaticVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	id, ok := s[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &id, nil
}
