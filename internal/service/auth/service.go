package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/repository"
	"github.com/splax/moviegate/pkg/crypto"
	jwtpkg "github.com/splax/moviegate/pkg/jwt"
)

var (
	// ErrInvalidInput indicates the payload failed validation.
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrEmailInUse indicates signup for an already registered email.
	ErrEmailInUse = errors.New("auth: email already in use")
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
	VerifyDummy(plain string) bool
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	IssueDefault(id jwtpkg.Identity) (string, error)
	Verify(token string) (*jwtpkg.Claims, error)
}

var (
	_ PasswordHasher = (*crypto.Hasher)(nil)
	_ TokenIssuer    = (*jwtpkg.Service)(nil)
)

// Service handles authentication workflows.
type Service struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) Service {
	return Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// Session is the outcome of a successful signup or login.
type Session struct {
	User  *domain.User
	Token string
}

// Signup registers a new user and issues a session token.
func (s Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, err
	}
	_, exists, err := s.users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if exists {
		return Session{}, ErrEmailInUse
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	user, err := s.users.CreateUser(ctx, in.Email, in.Name, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return Session{}, ErrEmailInUse
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	token, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return Session{User: user, Token: token}, nil
}

// Login authenticates a user and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, err
	}
	user, found, err := s.users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !found {
		s.hasher.VerifyDummy(in.Password)
		s.logger.Debug("login rejected", "reason", "unknown_email")
		return Session{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger.Debug("login rejected", "reason", "password_mismatch", "user_id", user.ID)
		return Session{}, ErrInvalidCredentials
	}
	token, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return Session{User: user, Token: token}, nil
}

// Me resolves the public identity carried by a session token. It reports
// false for any token that fails verification.
func (s Service) Me(token string) (domain.PublicUser, bool) {
	if token == "" {
		return domain.PublicUser{}, false
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return domain.PublicUser{}, false
	}
	return domain.PublicUser{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, true
}

func (s Service) issue(user *domain.User) (string, error) {
	token, err := s.tokens.IssueDefault(jwtpkg.Identity{ID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
