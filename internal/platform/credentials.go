package platform

import (
	"context"
	"errors"
)

// Principal is the signed-in user as known to the credential service.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	IDToken     string `json:"-"`
}

// ProfileUpdate carries the principal fields to change. Nil fields are left as they are.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// ProviderGoogle is the federated provider id for Google sign-in.
const ProviderGoogle = "google.com"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already in use")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

//go:generate go run go.uber.org/mock/mockgen -source=credentials.go -destination=mocks/credentials.go -package=mocks

// CredentialService exchanges credentials for a principal.
type CredentialService interface {
	SignUp(ctx context.Context, email, password, displayName string) (Principal, error)
	SignIn(ctx context.Context, email, password string) (Principal, error)
	SignInWithIDToken(ctx context.Context, providerID, idToken string) (Principal, error)
	SignOut(ctx context.Context, uid string) error
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (Principal, error)
	// Verify checks a token previously issued for a principal.
	Verify(ctx context.Context, token string) (Principal, error)
}
