package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("jwt: invalid token")

const issuer = "moviegate"

// Identity is the subject a session token is issued for.
type Identity struct {
	ID    string
	Email string
	Name  *string
}

// Claims defines JWT payload.
type Claims struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	jwtlib.RegisteredClaims
}

// Identity returns the subject encoded in the claims.
func (c *Claims) Identity() Identity {
	return Identity{ID: c.Subject, Email: c.Email, Name: c.Name}
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp and check tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service issues and verifies HS256 session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds a Service signing with secret; ttl is the default lifetime.
func NewService(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt: secret required")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt: ttl must be positive")
	}
	s := &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL reports the default token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// IssueDefault signs a token for id using the default lifetime.
func (s *Service) IssueDefault(id Identity) (string, error) {
	return s.Issue(id, s.ttl)
}

// Issue signs a token for id that expires ttl after issuance.
func (s *Service) Issue(id Identity, ttl time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("jwt: subject required")
	}
	now := s.now()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, algorithm and expiry and returns the claims.
// A token checked at exactly its expiry instant is rejected.
func (s *Service) Verify(token string) (*Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	parsed, err := jwtlib.ParseWithClaims(trimmed, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwtlib.ErrTokenInvalidClaims)
	}
	return claims, nil
}
