// Package localauth is a self-contained credential service: bcrypt password hashes and HS256 session tokens.
// Federated sign-in accepts provider tokens signed with the same secret, as issued by SignProviderToken.
package localauth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

// Claims carried by session and provider tokens
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

type account struct {
	uid          string
	email        string
	passwordHash []byte
	displayName  string
	photoURL     string
}

type Opts struct {
	Secret   string
	TokenTTL time.Duration
	Clock    clockwork.Clock
}

type Service struct {
	mu       sync.RWMutex
	accounts map[string]*account
	byEmail  map[string]string
	sessions map[string]string
	secret   []byte
	ttl      time.Duration
	clock    clockwork.Clock
}

var _ platform.CredentialService = (*Service)(nil)

func New(opts Opts) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	return &Service{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		sessions: make(map[string]string),
		secret:   []byte(opts.Secret),
		ttl:      opts.TokenTTL,
		clock:    opts.Clock,
	}
}

func (s *Service) SignUp(_ context.Context, email, password, displayName string) (platform.Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return platform.Principal{}, platform.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return platform.Principal{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return platform.Principal{}, platform.ErrEmailExists
	}
	acc := &account{
		uid:          uuid.NewString(),
		email:        email,
		passwordHash: hash,
		displayName:  displayName,
	}
	s.accounts[acc.uid] = acc
	s.byEmail[email] = acc.uid
	return s.issue(acc)
}

func (s *Service) SignIn(_ context.Context, email, password string) (platform.Principal, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byEmail[email]
	if !ok {
		return platform.Principal{}, platform.ErrInvalidCredentials
	}
	acc := s.accounts[uid]
	if len(acc.passwordHash) == 0 {
		return platform.Principal{}, platform.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return platform.Principal{}, platform.ErrInvalidCredentials
	}
	return s.issue(acc)
}

func (s *Service) SignInWithIDToken(_ context.Context, providerID, idToken string) (platform.Principal, error) {
	claims, err := s.parse(idToken)
	if err != nil {
		return platform.Principal{}, err
	}
	if claims.Provider != providerID {
		return platform.Principal{}, fmt.Errorf("provider %q: %w", providerID, platform.ErrInvalidToken)
	}
	email := normalizeEmail(claims.Email)
	if email == "" {
		return platform.Principal{}, platform.ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byEmail[email]
	if !ok {
		acc := &account{
			uid:         uuid.NewString(),
			email:       email,
			displayName: claims.Name,
			photoURL:    claims.Picture,
		}
		s.accounts[acc.uid] = acc
		s.byEmail[email] = acc.uid
		uid = acc.uid
	}
	return s.issue(s.accounts[uid])
}

func (s *Service) SignOut(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, owner := range s.sessions {
		if owner == uid {
			delete(s.sessions, jti)
		}
	}
	return nil
}

func (s *Service) UpdateProfile(_ context.Context, uid string, update platform.ProfileUpdate) (platform.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[uid]
	if !ok {
		return platform.Principal{}, fmt.Errorf("account %s: %w", uid, platform.ErrNotFound)
	}
	if update.DisplayName != nil {
		acc.displayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		acc.photoURL = *update.PhotoURL
	}
	return s.issue(acc)
}

func (s *Service) Verify(_ context.Context, token string) (platform.Principal, error) {
	claims, err := s.parse(token)
	if err != nil {
		return platform.Principal{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if owner, ok := s.sessions[claims.ID]; !ok || owner != claims.Subject {
		return platform.Principal{}, platform.ErrInvalidToken
	}
	acc, ok := s.accounts[claims.Subject]
	if !ok {
		return platform.Principal{}, platform.ErrInvalidToken
	}
	return principal(acc, token), nil
}

// SignProviderToken mints a federated provider token accepted by SignInWithIDToken.
func (s *Service) SignProviderToken(providerID, email, name, picture string) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Email:    email,
		Name:     name,
		Picture:  picture,
		Provider: providerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// issue must be called with s.mu held.
func (s *Service) issue(acc *account) (platform.Principal, error) {
	now := s.clock.Now()
	jti := uuid.NewString()
	claims := Claims{
		Email: acc.email,
		Name:  acc.displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   acc.uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return platform.Principal{}, fmt.Errorf("sign token: %w", err)
	}
	s.sessions[jti] = acc.uid
	return principal(acc, token), nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, platform.ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(s.clock.Now(), true) {
		return nil, platform.ErrInvalidToken
	}
	return claims, nil
}

func principal(acc *account, token string) platform.Principal {
	return platform.Principal{
		UID:         acc.uid,
		Email:       acc.email,
		DisplayName: acc.displayName,
		PhotoURL:    acc.photoURL,
		IDToken:     token,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
