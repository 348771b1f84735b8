// Package firebaseauth implements platform.CredentialService against Firebase Authentication:
// the Identity Toolkit REST API for sign-in and the Admin SDK for profile updates and token checks.
package firebaseauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// requestURI is echoed back by the federated assertion endpoint; any registered URI works for ID tokens.
const requestURI = "http://localhost"

type Service struct {
	admin   *auth.Client
	toolkit *identitytoolkit.Service
}

var _ platform.CredentialService = (*Service)(nil)

func New(ctx context.Context, admin *auth.Client, apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY environment variable not set")
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating identity toolkit client: %w", err)
	}
	return &Service{admin: admin, toolkit: toolkit}, nil
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (platform.Principal, error) {
	resp, err := s.toolkit.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}).Context(ctx).Do()
	if err != nil {
		return platform.Principal{}, mapError(err)
	}
	return platform.Principal{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IdToken,
	}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (platform.Principal, error) {
	resp, err := s.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return platform.Principal{}, mapError(err)
	}
	return platform.Principal{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoUrl,
		IDToken:     resp.IdToken,
	}, nil
}

func (s *Service) SignInWithIDToken(ctx context.Context, providerID, idToken string) (platform.Principal, error) {
	body := url.Values{}
	body.Set("id_token", idToken)
	body.Set("providerId", providerID)

	resp, err := s.toolkit.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return platform.Principal{}, mapError(err)
	}
	return platform.Principal{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoUrl,
		IDToken:     resp.IdToken,
	}, nil
}

func (s *Service) SignOut(ctx context.Context, uid string) error {
	if err := s.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke tokens for %s: %w", uid, err)
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, uid string, update platform.ProfileUpdate) (platform.Principal, error) {
	params := &auth.UserToUpdate{}
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
	}
	rec, err := s.admin.UpdateUser(ctx, uid, params)
	if auth.IsUserNotFound(err) {
		return platform.Principal{}, fmt.Errorf("account %s: %w", uid, platform.ErrNotFound)
	}
	if err != nil {
		return platform.Principal{}, fmt.Errorf("update profile for %s: %w", uid, err)
	}
	return fromRecord(rec), nil
}

func (s *Service) Verify(ctx context.Context, token string) (platform.Principal, error) {
	verified, err := s.admin.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return platform.Principal{}, fmt.Errorf("%w: %v", platform.ErrInvalidToken, err)
	}
	rec, err := s.admin.GetUser(ctx, verified.UID)
	if err != nil {
		return platform.Principal{}, fmt.Errorf("get user %s: %w", verified.UID, err)
	}
	p := fromRecord(rec)
	p.IDToken = token
	return p, nil
}

func fromRecord(rec *auth.UserRecord) platform.Principal {
	return platform.Principal{
		UID:         rec.UID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
	}
}

// mapError turns Identity Toolkit error codes into platform errors.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case strings.HasPrefix(gerr.Message, "EMAIL_EXISTS"):
		return platform.ErrEmailExists
	case strings.HasPrefix(gerr.Message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(gerr.Message, "INVALID_PASSWORD"),
		strings.HasPrefix(gerr.Message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(gerr.Message, "INVALID_EMAIL"):
		return platform.ErrInvalidCredentials
	case strings.HasPrefix(gerr.Message, "INVALID_IDP_RESPONSE"),
		strings.HasPrefix(gerr.Message, "INVALID_ID_TOKEN"):
		return platform.ErrInvalidToken
	}
	return err
}
