package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/pkg/crypto"
	jwtpkg "github.com/splax/moviegate/pkg/jwt"
)

type userRepoMock struct {
	findByEmailFunc func(ctx context.Context, email string) (*domain.User, bool, error)
	createFunc      func(ctx context.Context, email string, name *string, passwordHash string) (*domain.User, error)
}

func (m userRepoMock) FindUserByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, false, nil
}

func (m userRepoMock) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*domain.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, email, name, passwordHash)
	}
	return &domain.User{ID: "user-1", Email: domain.NormalizeEmail(email), Name: name, PasswordHash: passwordHash}, nil
}

func (m userRepoMock) Ping(context.Context) error { return nil }

type hasherSpy struct {
	*crypto.Hasher
	verifyCalls int
	dummyCalls  int
}

func (h *hasherSpy) Verify(plain, digest string) bool {
	h.verifyCalls++
	return h.Hasher.Verify(plain, digest)
}

func (h *hasherSpy) VerifyDummy(plain string) bool {
	h.dummyCalls++
	return h.Hasher.VerifyDummy(plain)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHasher() *hasherSpy {
	return &hasherSpy{Hasher: crypto.NewHasher(bcrypt.MinCost)}
}

func newTokens(t *testing.T) *jwtpkg.Service {
	t.Helper()
	svc, err := jwtpkg.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func strPtr(s string) *string { return &s }
