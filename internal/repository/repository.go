package repository

import (
	"context"

	"github.com/splax/moviegate/internal/domain"
)

// UserRepository persists user credentials keyed by normalized email.
//
// FindUserByEmail reports absence with found=false and a nil error.
// CreateUser is an atomic create-if-absent and returns ErrDuplicateEmail when
// a record already exists for the normalized email.
type UserRepository interface {
	FindUserByEmail(ctx context.Context, email string) (user *domain.User, found bool, err error)
	CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*domain.User, error)
	Ping(ctx context.Context) error
}
