// Package redisstore keeps user records in Redis, one key per normalized email.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/repository"
)

const keyPrefix = "moviegate:user:"

type record struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store implements repository.UserRepository on Redis. SETNX makes
// create-if-absent a single atomic command.
type Store struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ repository.UserRepository = (*Store)(nil)

// New wraps an existing client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client, now: time.Now}
}

// Dial connects to a single Redis node.
func Dial(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func userKey(email string) string {
	return keyPrefix + domain.NormalizeEmail(email)
}

// FindUserByEmail loads the record stored under the normalized email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	data, err := s.client.Get(ctx, userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get user: %w", repository.ErrStorage, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: decode user: %w", repository.ErrStorage, err)
	}
	return &domain.User{
		ID:           rec.ID,
		Email:        rec.Email,
		Name:         rec.Name,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, true, nil
}

// CreateUser stores a new record unless one exists for the normalized email.
func (s *Store) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*domain.User, error) {
	rec := record{
		ID:           uuid.NewString(),
		Email:        domain.NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: encode user: %w", repository.ErrStorage, err)
	}
	ok, err := s.client.SetNX(ctx, userKey(rec.Email), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: set user: %w", repository.ErrStorage, err)
	}
	if !ok {
		return nil, repository.ErrDuplicateEmail
	}
	return &domain.User{
		ID:           rec.ID,
		Email:        rec.Email,
		Name:         rec.Name,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping redis: %w", repository.ErrStorage, err)
	}
	return nil
}
