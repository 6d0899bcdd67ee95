// Package filestore keeps user records in a single JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/repository"
)

type record struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists users to a JSON file. Writers are serialized by a mutex and
// every write replaces the file atomically, so readers never see a partial
// collection.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

var _ repository.UserRepository = (*Store)(nil)

// New returns a Store backed by path. The file is created on first write.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// FindUserByEmail looks up a user by normalized email.
func (s *Store) FindUserByEmail(_ context.Context, email string) (*domain.User, bool, error) {
	records, err := s.load()
	if err != nil {
		return nil, false, err
	}
	key := domain.NormalizeEmail(email)
	for _, rec := range records {
		if rec.Email == key {
			return rec.toUser(), true, nil
		}
	}
	return nil, false, nil
}

// CreateUser appends a new user unless the normalized email is taken.
func (s *Store) CreateUser(_ context.Context, email string, name *string, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	key := domain.NormalizeEmail(email)
	for _, rec := range records {
		if rec.Email == key {
			return nil, repository.ErrDuplicateEmail
		}
	}
	rec := record{
		ID:           uuid.NewString(),
		Email:        key,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.save(append(records, rec)); err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

// Ping checks that the backing directory exists and can be created.
func (s *Store) Ping(context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrStorage, err)
	}
	return nil
}

func (s *Store) load() ([]record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read users: %w", repository.ErrStorage, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode users: %w", repository.ErrStorage, err)
	}
	return records, nil
}

func (s *Store) save(records []record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %w", repository.ErrStorage, err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode users: %w", repository.ErrStorage, err)
	}
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", repository.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write users: %w", repository.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync users: %w", repository.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close users: %w", repository.ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace users: %w", repository.ErrStorage, err)
	}
	return nil
}

func (r record) toUser() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}
